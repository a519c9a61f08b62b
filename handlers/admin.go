// doctalk/handlers/admin.go
package handlers

import (
	"net/http"
	"strconv"

	"doctalk/models"
)

// HandleAdmin dispatches maintenance actions that require an admin session.
func HandleAdmin(w http.ResponseWriter, r *http.Request, app App) {
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, msgLoginRequired)
		return
	}
	if !user.IsAdmin {
		fail(w, app, msgNoAdmin)
		return
	}

	switch r.URL.Query().Get("action") {
	case "backup_db":
		handleBackupDB(w, r, app, user)
	case "admin_log":
		handleAdminLog(w, r, app)
	default:
		fail(w, app, msgInvalidAction)
	}
}

func handleBackupDB(w http.ResponseWriter, r *http.Request, app App, admin *models.User) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	backupPath, err := app.Store().BackupDatabase(app.BackupDir())
	if err != nil {
		app.Logger().Error("Database backup failed", "error", err)
		fail(w, app, msgGenericError)
		return
	}
	if err := app.Store().RecordAdminAction(admin.ID, "backup_db", backupPath); err != nil {
		app.Logger().Error("Failed to record backup in audit log", "error", err)
	}
	app.Logger().Info("Database backup completed", "admin_id", admin.ID, "path", backupPath)
	succeed(w, app, map[string]interface{}{
		"message":     "Sao lưu cơ sở dữ liệu thành công",
		"backup_path": backupPath,
	})
}

func handleAdminLog(w http.ResponseWriter, r *http.Request, app App) {
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	actions, err := app.Store().GetAdminActions(limit)
	if err != nil {
		app.Logger().Error("Failed to fetch admin log", "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{"actions": actions})
}
