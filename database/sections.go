// doctalk/database/sections.go
package database

import (
	"database/sql"
	"fmt"

	"doctalk/models"
	"doctalk/utils"
)

func scanSection(row *sql.Row) (*models.Section, error) {
	var sec models.Section
	var subject sql.NullString
	err := row.Scan(&sec.ID, &sec.SectionType, &sec.Category, &subject, &sec.Title, &sec.Description, &sec.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error getting section: %w", err)
	}
	if subject.Valid {
		sec.Subject = &subject.String
	}
	return &sec, nil
}

// GetSection performs an exact-match lookup on the (type, category, subject)
// triple. A nil subject must match only rows whose subject column is NULL;
// SQL NULL never compares equal, so the clause switches to IS NULL.
func (s *Store) GetSection(sectionType, category string, subject *string) (*models.Section, error) {
	query := `SELECT id, section_type, section_category, section_subject, title, description, is_active
		FROM document_sections
		WHERE section_type = ? AND section_category = ?`
	args := []interface{}{sectionType, category}

	if subject != nil {
		query += " AND section_subject = ?"
		args = append(args, *subject)
	} else {
		query += " AND section_subject IS NULL"
	}
	query += " AND is_active = 1"

	return scanSection(s.DB.QueryRow(query, args...))
}

// GetSectionByID fetches a single active section.
func (s *Store) GetSectionByID(sectionID int64) (*models.Section, error) {
	return scanSection(s.DB.QueryRow(`SELECT id, section_type, section_category, section_subject, title, description, is_active
		FROM document_sections WHERE id = ? AND is_active = 1`, sectionID))
}

// GetAllSections lists every active section in display order.
func (s *Store) GetAllSections() ([]models.Section, error) {
	rows, err := s.DB.Query(`SELECT id, section_type, section_category, section_subject, title, description, is_active
		FROM document_sections WHERE is_active = 1
		ORDER BY section_type, section_category, section_subject`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetAllSections", "error", err)
		}
	}()

	var sections []models.Section
	for rows.Next() {
		var sec models.Section
		var subject sql.NullString
		if err := rows.Scan(&sec.ID, &sec.SectionType, &sec.Category, &subject, &sec.Title, &sec.Description, &sec.IsActive); err != nil {
			s.logger.Error("Failed to scan section row", "error", err)
			continue
		}
		if subject.Valid {
			sec.Subject = &subject.String
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// CreateSection inserts a new section. Admin-only; the caller's admin flag
// is re-checked server side and the creation is audited.
func (s *Store) CreateSection(adminID int64, sectionType, category string, subject *string, title, description string) (int64, error) {
	ok, err := s.IsAdmin(adminID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotAdmin
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			s.logger.Error("Failed to rollback transaction in CreateSection", "error", rerr)
		}
	}()

	res, err := tx.Exec(`INSERT INTO document_sections (section_type, section_category, section_subject, title, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sectionType, category, subject, title, description, utils.GetSQLTime())
	if err != nil {
		return 0, fmt.Errorf("failed to insert section: %w", err)
	}
	sectionID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := logAdminAction(tx, adminID, "create_section", nil, nil, fmt.Sprintf("Created section #%d (%s)", sectionID, title)); err != nil {
		return 0, err
	}
	return sectionID, tx.Commit()
}

// ToggleSectionReaction applies the three-way toggle for a user's reaction
// on a section and reports which branch happened: "added", "updated" or
// "removed".
func (s *Store) ToggleSectionReaction(userID, sectionID int64, reactionType string) (string, error) {
	return s.toggleReaction("section_reactions", "section_id", userID, sectionID, reactionType)
}

// GetSectionReactions returns reaction counts grouped by type. Types with
// no reactions are omitted; callers default missing keys to zero.
func (s *Store) GetSectionReactions(sectionID int64) (map[string]int, error) {
	rows, err := s.DB.Query(`SELECT reaction_type, COUNT(*) FROM section_reactions
		WHERE section_id = ? GROUP BY reaction_type`, sectionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetSectionReactions", "error", err)
		}
	}()

	reactions := make(map[string]int)
	for rows.Next() {
		var rt string
		var count int
		if err := rows.Scan(&rt, &count); err != nil {
			s.logger.Error("Failed to scan section reaction row", "error", err)
			continue
		}
		reactions[rt] = count
	}
	return reactions, rows.Err()
}

// GetUserSectionReaction returns the user's current reaction type on a
// section, or "" when there is none.
func (s *Store) GetUserSectionReaction(userID, sectionID int64) (string, error) {
	var rt string
	err := s.DB.QueryRow("SELECT reaction_type FROM section_reactions WHERE user_id = ? AND section_id = ?",
		userID, sectionID).Scan(&rt)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return rt, nil
}

// GetSectionStats computes reaction and comment totals independently.
func (s *Store) GetSectionStats(sectionID int64) (*models.SectionStats, error) {
	var stats models.SectionStats
	err := s.DB.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM section_reactions WHERE section_id = ?`,
		sectionID).Scan(&stats.Reactions.TotalReactions, &stats.Reactions.UniqueReactors)
	if err != nil {
		return nil, fmt.Errorf("failed to compute reaction stats: %w", err)
	}
	err = s.DB.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM comments WHERE section_id = ? AND is_deleted = 0`,
		sectionID).Scan(&stats.Comments.TotalComments, &stats.Comments.UniqueCommenters)
	if err != nil {
		return nil, fmt.Errorf("failed to compute comment stats: %w", err)
	}
	return &stats, nil
}

// GetPopularReactions lists the most-reacted (section, reaction type) pairs.
func (s *Store) GetPopularReactions(limit int) ([]models.PopularReaction, error) {
	rows, err := s.DB.Query(`SELECT d.section_type, d.section_category, d.section_subject, d.title,
			sr.reaction_type, COUNT(*) as reaction_count
		FROM section_reactions sr
		JOIN document_sections d ON sr.section_id = d.id
		WHERE d.is_active = 1
		GROUP BY sr.section_id, sr.reaction_type
		ORDER BY reaction_count DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetPopularReactions", "error", err)
		}
	}()

	var popular []models.PopularReaction
	for rows.Next() {
		var p models.PopularReaction
		var subject sql.NullString
		if err := rows.Scan(&p.SectionType, &p.Category, &subject, &p.Title, &p.ReactionType, &p.ReactionCount); err != nil {
			s.logger.Error("Failed to scan popular reaction row", "error", err)
			continue
		}
		if subject.Valid {
			p.Subject = &subject.String
		}
		popular = append(popular, p)
	}
	return popular, rows.Err()
}
