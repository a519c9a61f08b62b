// doctalk/handlers/handlers.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"doctalk/config"
	"doctalk/database"
	"doctalk/models"
	"doctalk/utils"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	Store() *database.Store
	RateLimiter() *models.RateLimiter
	Logger() *slog.Logger
	Storage() models.StorageService
	AvatarDir() string
	BackupDir() string
}

// Shared user-facing messages. The API speaks Vietnamese to match the
// document site it is embedded in.
const (
	msgLoginRequired   = "Vui lòng đăng nhập"
	msgNoAdmin         = "Không có quyền admin"
	msgGenericError    = "Có lỗi xảy ra"
	msgInvalidAction   = "Action không hợp lệ"
	msgSectionNotFound = "Không tìm thấy section"
	msgMissingFields   = "Thiếu thông tin bắt buộc"
	msgMissingSection  = "Thiếu thông tin section"
	msgRateLimited     = "Bạn thao tác quá nhanh. Vui lòng thử lại sau."
)

// respondJSON sends a JSON response with a given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, app App) {
	response, err := json.Marshal(payload)
	if err != nil {
		app.Logger().Error("Failed to marshal JSON payload", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte(`{"success":false,"message":"Internal error"}`)); werr != nil {
			app.Logger().Error("Failed to write internal server error response", "error", werr)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		app.Logger().Error("Failed to write JSON response", "error", err)
	}
}

// fail normalizes every failure class to the same success=false envelope.
// Failures are carried in the body, not in the HTTP status; clients inspect
// the "success" field.
func fail(w http.ResponseWriter, app App, message string) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": false, "message": message}, app)
}

// succeed sends a success envelope with extra payload fields.
func succeed(w http.ResponseWriter, app App, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["success"] = true
	respondJSON(w, http.StatusOK, payload, app)
}

// decodeBody parses a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// sessionUser resolves the caller's session cookie to a user, or nil when
// there is no valid session. The resolved user is passed explicitly into
// every operation that needs it; nothing downstream reads request state.
func sessionUser(r *http.Request, app App) *models.User {
	cookie, err := r.Cookie(config.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := app.Store().ValidateSession(cookie.Value)
	if err != nil {
		if err != database.ErrNotFound {
			app.Logger().Error("Session validation failed", "error", err)
		}
		return nil
	}
	return user
}

// allowRate checks the per-IP limiter for mutating actions.
func allowRate(r *http.Request, app App) bool {
	return app.RateLimiter().GetLimiter(utils.GetIPAddress(r)).Allow()
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(config.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// MakeHandler adapts an App-aware handler function to http.HandlerFunc.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}
