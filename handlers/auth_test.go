package handlers

import (
	"net/http"
	"testing"
)

func TestHandleRegister(t *testing.T) {
	app := setupTestApp(t)
	handler := http.HandlerFunc(MakeHandler(app, HandleAuth))

	t.Run("Success", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=register", map[string]interface{}{
			"username":     "newuser",
			"email":        "newuser@example.com",
			"password":     "secret123",
			"display_name": "New User",
		}, "")
		expectSuccess(t, resp)
		if resp["message"] != "Đăng ký thành công" {
			t.Errorf("Unexpected message: %v", resp["message"])
		}
	})

	t.Run("Duplicate Username", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=register", map[string]interface{}{
			"username":     "newuser",
			"email":        "different@example.com",
			"password":     "secret123",
			"display_name": "Other User",
		}, "")
		expectFailure(t, resp, "Tên đăng nhập hoặc email đã tồn tại")
	})

	t.Run("Missing Fields", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=register", map[string]interface{}{
			"username": "incomplete",
		}, "")
		expectFailure(t, resp, "Vui lòng điền đầy đủ thông tin")
	})

	t.Run("Short Password", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=register", map[string]interface{}{
			"username":     "shortpw",
			"email":        "shortpw@example.com",
			"password":     "123",
			"display_name": "Short PW",
		}, "")
		expectFailure(t, resp, "Mật khẩu phải có ít nhất 6 ký tự")
	})

	t.Run("Invalid Email", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=register", map[string]interface{}{
			"username":     "bademail",
			"email":        "not-an-email",
			"password":     "secret123",
			"display_name": "Bad Email",
		}, "")
		expectFailure(t, resp, "Email không hợp lệ")
	})

	t.Run("Short Username", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=register", map[string]interface{}{
			"username":     "ab",
			"email":        "ab@example.com",
			"password":     "secret123",
			"display_name": "Too Short",
		}, "")
		expectFailure(t, resp, "Tên đăng nhập phải từ 3 đến 50 ký tự")
	})
}

func TestHandleLogin(t *testing.T) {
	app := setupTestApp(t)
	handler := http.HandlerFunc(MakeHandler(app, HandleAuth))
	registerAndLogin(t, app, "loginuser")

	t.Run("Wrong Password", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=login", map[string]interface{}{
			"username": "loginuser",
			"password": "wrongwrong",
		}, "")
		expectFailure(t, resp, "Tên đăng nhập hoặc mật khẩu không đúng")
	})

	t.Run("Unknown User Gets Same Message", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=login", map[string]interface{}{
			"username": "ghost",
			"password": "whatever",
		}, "")
		expectFailure(t, resp, "Tên đăng nhập hoặc mật khẩu không đúng")
	})

	t.Run("Login By Email", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=login", map[string]interface{}{
			"username": "loginuser@example.com",
			"password": "secret123",
		}, "")
		expectSuccess(t, resp)
		user, ok := resp["user"].(map[string]interface{})
		if !ok {
			t.Fatalf("Expected user object, got %+v", resp)
		}
		if user["username"] != "loginuser" {
			t.Errorf("Expected username loginuser, got %v", user["username"])
		}
		if _, leaked := user["password_hash"]; leaked {
			t.Error("Password hash must never appear in responses")
		}
	})
}

func TestSessionVerifyAndLogout(t *testing.T) {
	app := setupTestApp(t)
	handler := http.HandlerFunc(MakeHandler(app, HandleAuth))
	token := registerAndLogin(t, app, "sessionuser")

	t.Run("Verify Valid Session", func(t *testing.T) {
		resp := getJSON(t, handler, "/api/auth?action=verify", token)
		expectSuccess(t, resp)
		user := resp["user"].(map[string]interface{})
		if user["username"] != "sessionuser" {
			t.Errorf("Expected sessionuser, got %v", user["username"])
		}
	})

	t.Run("Verify Without Session", func(t *testing.T) {
		resp := getJSON(t, handler, "/api/auth?action=verify", "")
		expectFailure(t, resp, "Không tìm thấy session")
	})

	t.Run("Logout Invalidates Session", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=logout", map[string]interface{}{}, token)
		expectSuccess(t, resp)

		resp = getJSON(t, handler, "/api/auth?action=verify", token)
		expectFailure(t, resp, "Session không hợp lệ")
	})
}

func TestHandleProfile(t *testing.T) {
	app := setupTestApp(t)
	handler := http.HandlerFunc(MakeHandler(app, HandleAuth))
	token := registerAndLogin(t, app, "profileuser")

	t.Run("Update Requires Login", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=update_profile", map[string]interface{}{
			"display_name": "Nobody",
		}, "")
		expectFailure(t, resp, msgLoginRequired)
	})

	t.Run("Update And Read Back", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=update_profile", map[string]interface{}{
			"display_name": "Người Dùng Mới",
			"avatar_icon":  "student",
			"profile_bio":  "Xin chào!",
		}, token)
		expectSuccess(t, resp)

		resp = getJSON(t, handler, "/api/auth?action=get_profile", token)
		expectSuccess(t, resp)
		profile := resp["profile"].(map[string]interface{})
		if profile["display_name"] != "Người Dùng Mới" {
			t.Errorf("Expected updated display name, got %v", profile["display_name"])
		}
		if profile["avatar_icon"] != "student" {
			t.Errorf("Expected updated avatar icon, got %v", profile["avatar_icon"])
		}
	})

	t.Run("Empty Display Name Is Rejected", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=update_profile", map[string]interface{}{
			"display_name": "   ",
		}, token)
		expectFailure(t, resp, "Tên hiển thị không được để trống")
	})

	t.Run("Avatar Catalog", func(t *testing.T) {
		resp := getJSON(t, handler, "/api/auth?action=get_avatars", "")
		expectSuccess(t, resp)
		avatars, ok := resp["avatars"].([]interface{})
		if !ok || len(avatars) == 0 {
			t.Fatalf("Expected seeded avatar catalog, got %+v", resp["avatars"])
		}
	})
}

func TestAdminUserActions(t *testing.T) {
	app := setupTestApp(t)
	handler := http.HandlerFunc(MakeHandler(app, HandleAuth))
	adminToken := registerAndLogin(t, app, "boss")
	userToken := registerAndLogin(t, app, "worker")

	var workerID int64
	if err := app.store.DB.QueryRow("SELECT id FROM users WHERE username = 'worker'").Scan(&workerID); err != nil {
		t.Fatal(err)
	}

	t.Run("Non-Admin Cannot Promote", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=promote_user", map[string]interface{}{
			"user_id": workerID,
			"badge":   "Mod",
		}, userToken)
		expectFailure(t, resp, msgNoAdmin)
	})

	grantAdmin(t, app, "boss")
	// Promote/ban re-validate the session, so the fresh admin flag is
	// picked up without a new login.

	t.Run("Admin Promotes User", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=promote_user", map[string]interface{}{
			"user_id": workerID,
			"badge":   "Điều hành viên",
		}, adminToken)
		expectSuccess(t, resp)
	})

	t.Run("Admin Bans User", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/auth?action=ban_user", map[string]interface{}{
			"user_id": workerID,
			"reason":  "spam",
		}, adminToken)
		expectSuccess(t, resp)

		// Banned user's session no longer verifies.
		resp = getJSON(t, handler, "/api/auth?action=verify", userToken)
		expectFailure(t, resp, "Session không hợp lệ")
	})
}
