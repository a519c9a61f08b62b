// doctalk/database/users.go
package database

import (
	"database/sql"
	"fmt"
	"strings"

	"doctalk/models"
	"doctalk/utils"
)

// CreateUser inserts a new user row with an already-hashed password and
// returns the new id. ErrUserExists is returned when the username or email
// is taken.
func (s *Store) CreateUser(username, email, passwordHash, displayName, avatarIcon string) (int64, error) {
	var existing int64
	err := s.DB.QueryRow("SELECT id FROM users WHERE username = ? OR email = ?", username, email).Scan(&existing)
	if err == nil {
		return 0, ErrUserExists
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to check user existence: %w", err)
	}

	res, err := s.DB.Exec(`INSERT INTO users (username, email, password_hash, display_name, avatar_icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		username, email, passwordHash, displayName, avatarIcon, utils.GetSQLTime())
	if err != nil {
		// The unique constraints are the backstop against a concurrent
		// registration with the same name.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return res.LastInsertId()
}

// GetUserForLogin looks up an active user by username or email and includes
// the password hash for verification.
func (s *Store) GetUserForLogin(usernameOrEmail string) (*models.User, error) {
	var u models.User
	var badge sql.NullString
	err := s.DB.QueryRow(`SELECT id, username, email, password_hash, display_name, avatar_icon, is_admin, admin_badge
		FROM users WHERE (username = ? OR email = ?) AND is_active = 1`,
		usernameOrEmail, usernameOrEmail).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarIcon, &u.IsAdmin, &badge)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error looking up user: %w", err)
	}
	if badge.Valid {
		u.AdminBadge = &badge.String
	}
	u.IsActive = true
	return &u, nil
}

// GetUserByID returns the public profile of an active user.
func (s *Store) GetUserByID(userID int64) (*models.User, error) {
	var u models.User
	var badge, bio, avatarPath sql.NullString
	var lastLogin sql.NullTime
	err := s.DB.QueryRow(`SELECT id, username, email, display_name, avatar_icon, avatar_path, is_admin, admin_badge, profile_bio, created_at, last_login
		FROM users WHERE id = ? AND is_active = 1`, userID).Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.AvatarIcon, &avatarPath, &u.IsAdmin, &badge, &bio, &u.CreatedAt, &lastLogin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error getting user %d: %w", userID, err)
	}
	if badge.Valid {
		u.AdminBadge = &badge.String
	}
	if avatarPath.Valid {
		u.AvatarPath = &avatarPath.String
	}
	u.ProfileBio = bio.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	u.IsActive = true
	return &u, nil
}

// UpdateLastLogin stamps a successful login.
func (s *Store) UpdateLastLogin(userID int64) error {
	_, err := s.DB.Exec("UPDATE users SET last_login = ? WHERE id = ?", utils.GetSQLTime(), userID)
	return err
}

// UpdateProfile applies owner-editable profile fields.
func (s *Store) UpdateProfile(userID int64, displayName, avatarIcon, profileBio string) error {
	_, err := s.DB.Exec("UPDATE users SET display_name = ?, avatar_icon = ?, profile_bio = ? WHERE id = ?",
		displayName, avatarIcon, profileBio, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateAvatarPath records the stored location of an uploaded avatar and
// returns the previous path so callers can delete the old file.
func (s *Store) UpdateAvatarPath(userID int64, path string) (string, error) {
	var old sql.NullString
	err := s.DB.QueryRow("SELECT avatar_path FROM users WHERE id = ?", userID).Scan(&old)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}
	if _, err := s.DB.Exec("UPDATE users SET avatar_path = ? WHERE id = ?", path, userID); err != nil {
		return "", fmt.Errorf("failed to update avatar path: %w", err)
	}
	return old.String, nil
}

// GetAvatarIcons returns the active avatar icon catalog.
func (s *Store) GetAvatarIcons() ([]models.AvatarIcon, error) {
	rows, err := s.DB.Query("SELECT icon_name, icon_emoji, category FROM avatar_icons WHERE is_active = 1 ORDER BY category, icon_name")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetAvatarIcons", "error", err)
		}
	}()

	var icons []models.AvatarIcon
	for rows.Next() {
		var ic models.AvatarIcon
		if err := rows.Scan(&ic.IconName, &ic.IconEmoji, &ic.Category); err != nil {
			s.logger.Error("Failed to scan avatar icon row", "error", err)
			continue
		}
		icons = append(icons, ic)
	}
	return icons, rows.Err()
}

// IsAdmin re-checks the acting user's admin flag against the users table.
// Client-supplied flags are never trusted for admin-gated operations.
func (s *Store) IsAdmin(userID int64) (bool, error) {
	var isAdmin bool
	err := s.DB.QueryRow("SELECT is_admin FROM users WHERE id = ?", userID).Scan(&isAdmin)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return isAdmin, nil
}

// PromoteUser sets the target's admin badge label and audits the action.
func (s *Store) PromoteUser(adminID, targetUserID int64, badge string) error {
	ok, err := s.IsAdmin(adminID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAdmin
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			s.logger.Error("Failed to rollback transaction in PromoteUser", "error", rerr)
		}
	}()

	if _, err := tx.Exec("UPDATE users SET admin_badge = ? WHERE id = ?", badge, targetUserID); err != nil {
		return fmt.Errorf("failed to promote user %d: %w", targetUserID, err)
	}
	if err := logAdminAction(tx, adminID, "promote_user", &targetUserID, nil, "Promoted to: "+badge); err != nil {
		return err
	}
	return tx.Commit()
}

// BanUser soft-bans the target (is_active=0) and audits the action. The
// user row is retained; the next session validation locks them out.
func (s *Store) BanUser(adminID, targetUserID int64, reason string) error {
	ok, err := s.IsAdmin(adminID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAdmin
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			s.logger.Error("Failed to rollback transaction in BanUser", "error", rerr)
		}
	}()

	if _, err := tx.Exec("UPDATE users SET is_active = 0 WHERE id = ?", targetUserID); err != nil {
		return fmt.Errorf("failed to ban user %d: %w", targetUserID, err)
	}
	// Banned users should not keep valid sessions around.
	if _, err := tx.Exec("DELETE FROM sessions WHERE user_id = ?", targetUserID); err != nil {
		return fmt.Errorf("failed to clear sessions for banned user %d: %w", targetUserID, err)
	}
	if err := logAdminAction(tx, adminID, "ban_user", &targetUserID, nil, reason); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAdminActions returns the most recent audit log entries, newest first.
func (s *Store) GetAdminActions(limit int) ([]models.AdminAction, error) {
	rows, err := s.DB.Query(`SELECT a.id, a.admin_user_id, u.username, a.action_type, a.target_user_id, a.target_comment_id, a.reason, a.created_at
		FROM admin_actions a JOIN users u ON a.admin_user_id = u.id
		ORDER BY a.created_at DESC, a.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetAdminActions", "error", err)
		}
	}()

	var actions []models.AdminAction
	for rows.Next() {
		var a models.AdminAction
		var targetUser, targetComment sql.NullInt64
		var reason sql.NullString
		if err := rows.Scan(&a.ID, &a.AdminUserID, &a.AdminUsername, &a.ActionType, &targetUser, &targetComment, &reason, &a.CreatedAt); err != nil {
			s.logger.Error("Failed to scan admin action row", "error", err)
			continue
		}
		if targetUser.Valid {
			a.TargetUserID = &targetUser.Int64
		}
		if targetComment.Valid {
			a.TargetCommentID = &targetComment.Int64
		}
		a.Reason = reason.String
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
