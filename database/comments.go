// doctalk/database/comments.go
package database

import (
	"database/sql"
	"fmt"
	"strings"

	"doctalk/models"
	"doctalk/utils"
)

// AddComment inserts a comment (or a reply when parentID is non-nil) and
// returns the new id. Content validation happens at the handler boundary;
// the parent id is stored as given.
func (s *Store) AddComment(userID, sectionID int64, parentID *int64, content string) (int64, error) {
	now := utils.GetSQLTime()
	res, err := s.DB.Exec(`INSERT INTO comments (user_id, section_id, parent_comment_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sectionID, parentID, content, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert comment: %w", err)
	}
	return res.LastInsertId()
}

// GetCommentsBySection fetches one flat page of non-deleted comments for a
// section, oldest first, joined with the author projection and the total
// reaction count per comment. Grouping into the parent/reply tree is the
// caller's job (models.OrganizeComments); the LIMIT/OFFSET applies to the
// flat rows, not the tree.
func (s *Store) GetCommentsBySection(sectionID int64, limit, offset int) ([]models.Comment, error) {
	rows, err := s.DB.Query(`
		SELECT c.id, c.user_id, c.section_id, c.parent_comment_id, c.content, c.created_at, c.updated_at, c.is_edited,
		       u.username, u.display_name, u.avatar_icon, u.avatar_path, u.admin_badge,
		       (SELECT COUNT(*) FROM comment_reactions cr WHERE cr.comment_id = c.id) as total_reactions
		FROM comments c
		JOIN users u ON c.user_id = u.id
		WHERE c.section_id = ? AND c.is_deleted = 0
		ORDER BY c.created_at ASC, c.id ASC
		LIMIT ? OFFSET ?`, sectionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetCommentsBySection", "error", err)
		}
	}()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var parentID sql.NullInt64
		var badge, avatarPath sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.SectionID, &parentID, &c.Content, &c.CreatedAt, &c.UpdatedAt, &c.IsEdited,
			&c.Username, &c.DisplayName, &c.AvatarIcon, &avatarPath, &badge, &c.TotalReactions); err != nil {
			s.logger.Error("Failed to scan comment row", "error", err)
			continue
		}
		if parentID.Valid {
			c.ParentID = &parentID.Int64
		}
		if badge.Valid {
			c.AdminBadge = &badge.String
		}
		if avatarPath.Valid {
			c.AvatarPath = &avatarPath.String
		}
		c.Reactions = map[string]int{}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetCommentReactionCounts batch-fetches per-type reaction counts for a
// page of comment ids in one grouped query.
func (s *Store) GetCommentReactionCounts(commentIDs []int64) (map[int64]map[string]int, error) {
	counts := make(map[int64]map[string]int)
	if len(commentIDs) == 0 {
		return counts, nil
	}

	args := make([]interface{}, 0, len(commentIDs))
	for _, id := range commentIDs {
		args = append(args, id)
	}
	query := `SELECT comment_id, reaction_type, COUNT(*) FROM comment_reactions
		WHERE comment_id IN (?` + strings.Repeat(",?", len(commentIDs)-1) + `)
		GROUP BY comment_id, reaction_type`

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetCommentReactionCounts", "error", err)
		}
	}()

	for rows.Next() {
		var commentID int64
		var rt string
		var count int
		if err := rows.Scan(&commentID, &rt, &count); err != nil {
			s.logger.Error("Failed to scan comment reaction count row", "error", err)
			continue
		}
		if counts[commentID] == nil {
			counts[commentID] = make(map[string]int)
		}
		counts[commentID][rt] = count
	}
	return counts, rows.Err()
}

// GetUserCommentReactions batch-fetches the caller's own reaction per
// comment for a page of comment ids.
func (s *Store) GetUserCommentReactions(userID int64, commentIDs []int64) (map[int64]string, error) {
	reactions := make(map[int64]string)
	if len(commentIDs) == 0 {
		return reactions, nil
	}

	args := []interface{}{userID}
	for _, id := range commentIDs {
		args = append(args, id)
	}
	query := `SELECT comment_id, reaction_type FROM comment_reactions
		WHERE user_id = ? AND comment_id IN (?` + strings.Repeat(",?", len(commentIDs)-1) + `)`

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetUserCommentReactions", "error", err)
		}
	}()

	for rows.Next() {
		var commentID int64
		var rt string
		if err := rows.Scan(&commentID, &rt); err != nil {
			s.logger.Error("Failed to scan user reaction row", "error", err)
			continue
		}
		reactions[commentID] = rt
	}
	return reactions, rows.Err()
}

// EditComment updates a comment's content. Ownership is re-checked against
// the stored author id; soft-deleted comments cannot be edited.
func (s *Store) EditComment(userID, commentID int64, newContent string) error {
	var authorID int64
	err := s.DB.QueryRow("SELECT user_id FROM comments WHERE id = ? AND is_deleted = 0", commentID).Scan(&authorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("db error checking comment ownership: %w", err)
	}
	if authorID != userID {
		return ErrNotOwner
	}

	_, err = s.DB.Exec("UPDATE comments SET content = ?, is_edited = 1, updated_at = ? WHERE id = ?",
		newContent, utils.GetSQLTime(), commentID)
	if err != nil {
		return fmt.Errorf("failed to update comment %d: %w", commentID, err)
	}
	return nil
}

// DeleteComment soft-deletes a comment. Non-admins must own the comment;
// admins bypass the ownership check and the deletion is audited.
func (s *Store) DeleteComment(userID, commentID int64, isAdmin bool) error {
	if !isAdmin {
		var authorID int64
		err := s.DB.QueryRow("SELECT user_id FROM comments WHERE id = ?", commentID).Scan(&authorID)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("db error checking comment ownership: %w", err)
		}
		if authorID != userID {
			return ErrNotOwner
		}
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			s.logger.Error("Failed to rollback transaction in DeleteComment", "error", rerr)
		}
	}()

	res, err := tx.Exec("UPDATE comments SET is_deleted = 1, deleted_at = ? WHERE id = ? AND is_deleted = 0",
		utils.GetSQLTime(), commentID)
	if err != nil {
		return fmt.Errorf("failed to delete comment %d: %w", commentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if isAdmin {
		if err := logAdminAction(tx, userID, "delete_comment", nil, &commentID, "Admin deleted comment"); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ToggleCommentReaction applies the three-way toggle for a user's reaction
// on a comment.
func (s *Store) ToggleCommentReaction(userID, commentID int64, reactionType string) (string, error) {
	return s.toggleReaction("comment_reactions", "comment_id", userID, commentID, reactionType)
}

// GetCommentReactions returns reaction counts for one comment grouped by
// type. Reactions stay queryable even after the comment is soft-deleted.
func (s *Store) GetCommentReactions(commentID int64) (map[string]int, error) {
	rows, err := s.DB.Query(`SELECT reaction_type, COUNT(*) FROM comment_reactions
		WHERE comment_id = ? GROUP BY reaction_type`, commentID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetCommentReactions", "error", err)
		}
	}()

	reactions := make(map[string]int)
	for rows.Next() {
		var rt string
		var count int
		if err := rows.Scan(&rt, &count); err != nil {
			s.logger.Error("Failed to scan comment reaction row", "error", err)
			continue
		}
		reactions[rt] = count
	}
	return reactions, rows.Err()
}

// GetCommentStats counts non-deleted comments and their distinct authors
// for a section.
func (s *Store) GetCommentStats(sectionID int64) (*models.CommentStats, error) {
	var stats models.CommentStats
	err := s.DB.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM comments
		WHERE section_id = ? AND is_deleted = 0`, sectionID).Scan(&stats.TotalComments, &stats.UniqueUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to compute comment stats: %w", err)
	}
	return &stats, nil
}
