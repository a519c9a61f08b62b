// doctalk/database/sessions.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	"doctalk/models"
	"doctalk/utils"
)

// CreateSession stores a freshly minted session token.
func (s *Store) CreateSession(userID int64, token string, expiresAt time.Time, ipAddress, userAgent string) error {
	_, err := s.DB.Exec(`INSERT INTO sessions (session_token, user_id, expires_at, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		token, userID, expiresAt, ipAddress, userAgent, utils.GetSQLTime())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session row unconditionally. Logging out with an
// unknown token is not an error.
func (s *Store) DeleteSession(token string) error {
	_, err := s.DB.Exec("DELETE FROM sessions WHERE session_token = ?", token)
	return err
}

// PurgeExpiredSessions deletes every session past its expiry.
func (s *Store) PurgeExpiredSessions() error {
	_, err := s.DB.Exec("DELETE FROM sessions WHERE expires_at < ?", utils.GetSQLTime())
	return err
}

// ValidateSession resolves a token to its user. The token is valid only
// while its expiry is in the future and the user is still active. Expired
// sessions are purged inline on every call.
func (s *Store) ValidateSession(token string) (*models.User, error) {
	if err := s.PurgeExpiredSessions(); err != nil {
		s.logger.Error("Failed to purge expired sessions", "error", err)
	}

	var u models.User
	var badge, avatarPath sql.NullString
	err := s.DB.QueryRow(`SELECT u.id, u.username, u.email, u.display_name, u.avatar_icon, u.avatar_path, u.is_admin, u.admin_badge, u.created_at
		FROM users u
		JOIN sessions se ON u.id = se.user_id
		WHERE se.session_token = ? AND se.expires_at > ? AND u.is_active = 1`,
		token, utils.GetSQLTime()).Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.AvatarIcon, &avatarPath, &u.IsAdmin, &badge, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error validating session: %w", err)
	}
	if badge.Valid {
		u.AdminBadge = &badge.String
	}
	if avatarPath.Valid {
		u.AvatarPath = &avatarPath.String
	}
	u.IsActive = true
	return &u, nil
}
