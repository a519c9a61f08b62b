// doctalk/handlers/avatar.go
package handlers

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"doctalk/config"
)

var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// handleUploadAvatar accepts a multipart upload, normalizes the image to a
// square JPEG and stores it through the configured storage backend. The
// previous custom avatar, if any, is deleted after the swap.
func handleUploadAvatar(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, msgLoginRequired)
		return
	}
	if !allowRate(r, app) {
		fail(w, app, msgRateLimited)
		return
	}

	if err := r.ParseMultipartForm(config.MaxAvatarFileSize + 1024); err != nil {
		fail(w, app, "Tệp ảnh quá lớn")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		fail(w, app, "Thiếu tệp ảnh đại diện")
		return
	}
	defer file.Close()
	if header.Size > config.MaxAvatarFileSize {
		fail(w, app, "Tệp ảnh quá lớn")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, config.MaxAvatarFileSize+1))
	if err != nil {
		app.Logger().Error("Failed to read avatar upload", "user_id", user.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	if len(data) > config.MaxAvatarFileSize {
		fail(w, app, "Tệp ảnh quá lớn")
		return
	}
	if !allowedAvatarTypes[http.DetectContentType(data)] {
		fail(w, app, "Định dạng ảnh không được hỗ trợ")
		return
	}

	// Reject absurd pixel dimensions before decoding the full image.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		fail(w, app, "Không đọc được tệp ảnh")
		return
	}
	if cfg.Width > config.MaxAvatarWidth || cfg.Height > config.MaxAvatarHeight {
		fail(w, app, "Kích thước ảnh quá lớn")
		return
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		fail(w, app, "Không đọc được tệp ảnh")
		return
	}
	thumb := imaging.Fill(img, config.AvatarSize, config.AvatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		app.Logger().Error("Failed to encode avatar", "user_id", user.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}

	filename := fmt.Sprintf("%d_%d_%s.jpg", user.ID, time.Now().Unix(), uuid.NewString()[:8])
	path, err := app.Storage().SaveFile(filename, buf.Bytes(), "image/jpeg")
	if err != nil {
		app.Logger().Error("Failed to store avatar", "user_id", user.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}

	oldPath, err := app.Store().UpdateAvatarPath(user.ID, path)
	if err != nil {
		app.Logger().Error("Failed to update avatar path", "user_id", user.ID, "error", err)
		// The stored file is now orphaned; try to clean it up.
		deleteStoredFile(app, path)
		fail(w, app, msgGenericError)
		return
	}
	if oldPath != "" && oldPath != path {
		deleteStoredFile(app, oldPath)
	}

	app.Logger().Info("Avatar updated", "user_id", user.ID, "path", path)
	succeed(w, app, map[string]interface{}{
		"message":     "Cập nhật ảnh đại diện thành công",
		"avatar_path": path,
	})
}

func deleteStoredFile(app App, path string) {
	if err := app.Storage().DeleteFile(path); err != nil {
		app.Logger().Error("Failed to delete stored file", "path", path, "error", err)
	}
}
