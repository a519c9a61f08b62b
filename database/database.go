// doctalk/database/database.go
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"doctalk/utils"

	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors returned by store methods. Handlers map these to the
// user-facing failure messages.
var (
	ErrNotFound   = errors.New("not found")
	ErrNotOwner   = errors.New("not owner")
	ErrNotAdmin   = errors.New("not admin")
	ErrUserExists = errors.New("username or email already taken")
)

// Store is the central struct for all database operations.
type Store struct {
	DB     *sql.DB
	logger *slog.Logger
}

// InitDB connects to the database, runs migrations, and seeds reference data.
func InitDB(dataSourceName string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Run the base schema to ensure all tables exist.
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	if err := seedReferenceData(db); err != nil {
		return nil, err
	}

	logger.Info("Database initialized.")

	return &Store{DB: db, logger: logger}, nil
}

// seedReferenceData populates the avatar icon catalog and a default section
// on first start. Sections are pre-existing reference data: the comment flow
// never creates them implicitly.
func seedReferenceData(db *sql.DB) error {
	var iconCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM avatar_icons").Scan(&iconCount); err == nil && iconCount == 0 {
		icons := []struct{ name, emoji, category string }{
			{"user", "👤", "general"},
			{"student", "🧑‍🎓", "general"},
			{"teacher", "🧑‍🏫", "general"},
			{"book", "📚", "study"},
			{"pencil", "✏️", "study"},
			{"bulb", "💡", "study"},
			{"star", "⭐", "fun"},
			{"rocket", "🚀", "fun"},
			{"cat", "🐱", "animals"},
			{"dog", "🐶", "animals"},
			{"owl", "🦉", "animals"},
			{"fox", "🦊", "animals"},
		}
		for _, ic := range icons {
			if _, err := db.Exec("INSERT INTO avatar_icons (icon_name, icon_emoji, category) VALUES (?, ?, ?)",
				ic.name, ic.emoji, ic.category); err != nil {
				return fmt.Errorf("failed to seed avatar icons: %w", err)
			}
		}
	}

	var sectionCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM document_sections").Scan(&sectionCount); err == nil && sectionCount == 0 {
		_, err := db.Exec(`INSERT INTO document_sections (section_type, section_category, section_subject, title, description)
			VALUES ('document', 'general', NULL, 'Thảo luận chung', 'Khu vực thảo luận chung của tài liệu.')`)
		if err != nil {
			return fmt.Errorf("failed to seed sections: %w", err)
		}
	}

	return nil
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latestVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("could not get db version: %w", err)
	}

	logger.Info("Current database schema version", "version", latestVersion)

	for _, m := range allMigrations {
		if m.Version > latestVersion {
			logger.Info("Applying migration", "version", m.Version)
			tx, err := db.Begin()
			if err != nil {
				return err
			}

			if _, err := tx.Exec(m.Query); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					logger.Error("Failed to rollback migration", "version", m.Version, "error", rerr)
				}
				return fmt.Errorf("failed to apply migration v%d: %w", m.Version, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, utils.GetSQLTime()); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					logger.Error("Failed to rollback migration record", "version", m.Version, "error", rerr)
				}
				return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
			}

			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
			}
			logger.Info("Successfully applied migration", "version", m.Version)
		}
	}
	return nil
}

// BackupDatabase performs an online backup of the live SQLite database using
// VACUUM INTO.
func (s *Store) BackupDatabase(backupDir string) (string, error) {
	if backupDir == "" {
		return "", fmt.Errorf("backup directory is not configured")
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory %s: %w", backupDir, err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02_15-04-05")
	backupPath := filepath.Join(backupDir, fmt.Sprintf("doctalk_backup_%s.db", timestamp))

	s.logger.Info("Starting database backup", "destination", backupPath)

	if _, err := s.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
		if removeErr := os.Remove(backupPath); removeErr != nil && !os.IsNotExist(removeErr) {
			s.logger.Error("Failed to remove incomplete backup file", "path", backupPath, "error", removeErr)
		}
		return "", fmt.Errorf("VACUUM INTO command failed: %w", err)
	}

	return backupPath, nil
}

// RecordAdminAction appends a standalone audit row for admin operations that
// do not run inside another write transaction, such as backups.
func (s *Store) RecordAdminAction(adminID int64, actionType, reason string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := logAdminAction(tx, adminID, actionType, nil, nil, reason); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.logger.Error("Failed to rollback admin action record", "error", rerr)
		}
		return err
	}
	return tx.Commit()
}

// logAdminAction appends one row to the moderation audit log inside the
// caller's transaction.
func logAdminAction(tx *sql.Tx, adminID int64, actionType string, targetUserID, targetCommentID *int64, reason string) error {
	_, err := tx.Exec(`INSERT INTO admin_actions (admin_user_id, action_type, target_user_id, target_comment_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		adminID, actionType, targetUserID, targetCommentID, reason, utils.GetSQLTime())
	if err != nil {
		return fmt.Errorf("failed to log admin action: %w", err)
	}
	return nil
}
