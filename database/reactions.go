// doctalk/database/reactions.go
package database

import (
	"database/sql"
	"fmt"

	"doctalk/utils"
)

// toggleReaction implements the shared three-way toggle for comment and
// section reactions inside a single transaction, so two concurrent toggles
// from the same user serialize instead of interleaving:
//
//	same type already present      -> delete   ("removed")
//	different type already present -> overwrite ("updated")
//	no reaction yet                -> insert   ("added")
//
// The write path is a conditional DELETE followed by an upsert on the
// (user, target) unique constraint; no state is read outside the tx.
func (s *Store) toggleReaction(table, targetCol string, userID, targetID int64, reactionType string) (string, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return "", err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			s.logger.Error("Failed to rollback transaction in toggleReaction", "error", rerr)
		}
	}()

	res, err := tx.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND %s = ? AND reaction_type = ?", table, targetCol),
		userID, targetID, reactionType)
	if err != nil {
		return "", fmt.Errorf("failed to delete reaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return "removed", tx.Commit()
	}

	action := "added"
	var existing string
	err = tx.QueryRow(
		fmt.Sprintf("SELECT reaction_type FROM %s WHERE user_id = ? AND %s = ?", table, targetCol),
		userID, targetID).Scan(&existing)
	if err == nil {
		action = "updated"
	} else if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to check existing reaction: %w", err)
	}

	_, err = tx.Exec(
		fmt.Sprintf(`INSERT INTO %s (user_id, %s, reaction_type, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, %s) DO UPDATE SET reaction_type = excluded.reaction_type`,
			table, targetCol, targetCol),
		userID, targetID, reactionType, utils.GetSQLTime())
	if err != nil {
		return "", fmt.Errorf("failed to upsert reaction: %w", err)
	}

	return action, tx.Commit()
}
