// doctalk/handlers/auth.go
package handlers

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"doctalk/config"
	"doctalk/database"
	"doctalk/utils"
)

// HandleAuth dispatches every account-related action. The action name comes
// from the query string or, for POSTs, from the request body.
func HandleAuth(w http.ResponseWriter, r *http.Request, app App) {
	action := r.URL.Query().Get("action")

	switch action {
	case "register":
		handleRegister(w, r, app)
	case "login":
		handleLogin(w, r, app)
	case "logout":
		handleLogout(w, r, app)
	case "verify":
		handleVerify(w, r, app)
	case "get_avatars":
		handleGetAvatars(w, r, app)
	case "update_profile":
		handleUpdateProfile(w, r, app)
	case "get_profile":
		handleGetProfile(w, r, app)
	case "upload_avatar":
		handleUploadAvatar(w, r, app)
	case "promote_user":
		handlePromoteUser(w, r, app)
	case "ban_user":
		handleBanUser(w, r, app)
	default:
		fail(w, app, msgInvalidAction)
	}
}

func handleRegister(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	if !allowRate(r, app) {
		fail(w, app, msgRateLimited)
		return
	}

	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
		AvatarIcon  string `json:"avatar_icon"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, app, msgMissingFields)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Username == "" || req.Email == "" || req.Password == "" || req.DisplayName == "" {
		fail(w, app, "Vui lòng điền đầy đủ thông tin")
		return
	}
	if n := utf8.RuneCountInString(req.Username); n < config.MinUsernameLen || n > config.MaxUsernameLen {
		fail(w, app, "Tên đăng nhập phải từ 3 đến 50 ký tự")
		return
	}
	if !utils.IsValidEmail(req.Email) {
		fail(w, app, "Email không hợp lệ")
		return
	}
	if utf8.RuneCountInString(req.Password) < config.MinPasswordLen {
		fail(w, app, "Mật khẩu phải có ít nhất 6 ký tự")
		return
	}
	if n := utf8.RuneCountInString(req.DisplayName); n < config.MinDisplayNameLen || n > config.MaxDisplayNameLen {
		fail(w, app, "Tên hiển thị phải từ 2 đến 100 ký tự")
		return
	}
	if req.AvatarIcon == "" {
		req.AvatarIcon = "user"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		app.Logger().Error("Failed to hash password", "error", err)
		fail(w, app, msgGenericError)
		return
	}

	if _, err := app.Store().CreateUser(req.Username, req.Email, string(hash), req.DisplayName, req.AvatarIcon); err != nil {
		if err == database.ErrUserExists {
			fail(w, app, "Tên đăng nhập hoặc email đã tồn tại")
			return
		}
		app.Logger().Error("Failed to create user", "username", req.Username, "error", err)
		fail(w, app, msgGenericError)
		return
	}

	app.Logger().Info("User registered", "username", req.Username)
	succeed(w, app, map[string]interface{}{"message": "Đăng ký thành công"})
}

func handleLogin(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	if !allowRate(r, app) {
		fail(w, app, msgRateLimited)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, app, msgMissingFields)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		fail(w, app, "Vui lòng điền tên đăng nhập và mật khẩu")
		return
	}

	// Deliberately the same message for unknown account, banned account and
	// wrong password, so login probes learn nothing.
	user, err := app.Store().GetUserForLogin(req.Username)
	if err != nil {
		if err != database.ErrNotFound {
			app.Logger().Error("Login lookup failed", "error", err)
		}
		fail(w, app, "Tên đăng nhập hoặc mật khẩu không đúng")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		fail(w, app, "Tên đăng nhập hoặc mật khẩu không đúng")
		return
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		app.Logger().Error("Failed to generate session token", "error", err)
		fail(w, app, msgGenericError)
		return
	}
	expiresAt := time.Now().UTC().Add(config.SessionTTL)
	if err := app.Store().CreateSession(user.ID, token, expiresAt, utils.GetIPAddress(r), r.UserAgent()); err != nil {
		app.Logger().Error("Failed to create session", "user_id", user.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	if err := app.Store().UpdateLastLogin(user.ID); err != nil {
		app.Logger().Error("Failed to update last login", "user_id", user.ID, "error", err)
	}
	setSessionCookie(w, r, token)

	app.Logger().Info("User logged in", "user_id", user.ID, "username", user.Username)
	succeed(w, app, map[string]interface{}{
		"message":       "Đăng nhập thành công",
		"user":          user,
		"session_token": token,
	})
}

func handleLogout(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	if cookie, err := r.Cookie(config.SessionCookieName); err == nil && cookie.Value != "" {
		if err := app.Store().DeleteSession(cookie.Value); err != nil {
			app.Logger().Error("Failed to delete session", "error", err)
		}
	}
	clearSessionCookie(w, r)
	succeed(w, app, map[string]interface{}{"message": "Đã đăng xuất"})
}

func handleVerify(w http.ResponseWriter, r *http.Request, app App) {
	token := ""
	if cookie, err := r.Cookie(config.SessionCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		fail(w, app, "Không tìm thấy session")
		return
	}
	user, err := app.Store().ValidateSession(token)
	if err != nil {
		if err != database.ErrNotFound {
			app.Logger().Error("Session validation failed", "error", err)
		}
		fail(w, app, "Session không hợp lệ")
		return
	}
	succeed(w, app, map[string]interface{}{"user": user})
}

func handleGetAvatars(w http.ResponseWriter, r *http.Request, app App) {
	icons, err := app.Store().GetAvatarIcons()
	if err != nil {
		app.Logger().Error("Failed to fetch avatar icons", "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{"avatars": icons})
}

func handleUpdateProfile(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, msgLoginRequired)
		return
	}

	var req struct {
		DisplayName string `json:"display_name"`
		AvatarIcon  string `json:"avatar_icon"`
		ProfileBio  string `json:"profile_bio"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, app, msgMissingFields)
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		fail(w, app, "Tên hiển thị không được để trống")
		return
	}
	if n := utf8.RuneCountInString(req.DisplayName); n < config.MinDisplayNameLen || n > config.MaxDisplayNameLen {
		fail(w, app, "Tên hiển thị phải từ 2 đến 100 ký tự")
		return
	}
	if utf8.RuneCountInString(req.ProfileBio) > config.MaxBioLen {
		fail(w, app, "Giới thiệu không được quá 500 ký tự")
		return
	}
	if req.AvatarIcon == "" {
		req.AvatarIcon = user.AvatarIcon
	}

	if err := app.Store().UpdateProfile(user.ID, req.DisplayName, req.AvatarIcon, req.ProfileBio); err != nil {
		app.Logger().Error("Failed to update profile", "user_id", user.ID, "error", err)
		fail(w, app, "Có lỗi xảy ra khi cập nhật profile")
		return
	}
	succeed(w, app, map[string]interface{}{"message": "Cập nhật profile thành công"})
}

func handleGetProfile(w http.ResponseWriter, r *http.Request, app App) {
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, msgLoginRequired)
		return
	}
	profile, err := app.Store().GetUserByID(user.ID)
	if err != nil {
		app.Logger().Error("Failed to fetch profile", "user_id", user.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{"profile": profile})
}

func handlePromoteUser(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, msgLoginRequired)
		return
	}
	if !user.IsAdmin {
		fail(w, app, msgNoAdmin)
		return
	}

	var req struct {
		UserID int64  `json:"user_id"`
		Badge  string `json:"badge"`
	}
	if err := decodeBody(r, &req); err != nil || req.UserID == 0 {
		fail(w, app, msgMissingFields)
		return
	}
	if err := app.Store().PromoteUser(user.ID, req.UserID, req.Badge); err != nil {
		if err == database.ErrNotAdmin {
			fail(w, app, msgNoAdmin)
			return
		}
		app.Logger().Error("Failed to promote user", "target", req.UserID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	app.Logger().Info("User promoted", "admin_id", user.ID, "target", req.UserID, "badge", req.Badge)
	succeed(w, app, map[string]interface{}{"message": "Cập nhật quyền thành công"})
}

func handleBanUser(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, msgLoginRequired)
		return
	}
	if !user.IsAdmin {
		fail(w, app, msgNoAdmin)
		return
	}

	var req struct {
		UserID int64  `json:"user_id"`
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil || req.UserID == 0 {
		fail(w, app, msgMissingFields)
		return
	}
	if err := app.Store().BanUser(user.ID, req.UserID, req.Reason); err != nil {
		if err == database.ErrNotAdmin {
			fail(w, app, msgNoAdmin)
			return
		}
		app.Logger().Error("Failed to ban user", "target", req.UserID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	app.Logger().Info("User banned", "admin_id", user.ID, "target", req.UserID, "reason", req.Reason)
	succeed(w, app, map[string]interface{}{"message": "Đã cấm người dùng"})
}
