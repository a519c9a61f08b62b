// doctalk/handlers/comments.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"doctalk/config"
	"doctalk/database"
	"doctalk/models"
)

// HandleComments dispatches comment and reaction actions.
func HandleComments(w http.ResponseWriter, r *http.Request, app App) {
	action := r.URL.Query().Get("action")

	switch action {
	case "get_comments":
		handleGetComments(w, r, app)
	case "add_comment":
		handleAddComment(w, r, app)
	case "edit_comment":
		handleEditComment(w, r, app)
	case "delete_comment":
		handleDeleteComment(w, r, app)
	case "react_comment":
		handleReactComment(w, r, app)
	case "react_section":
		handleReactSection(w, r, app)
	case "get_section_stats":
		handleGetSectionStats(w, r, app)
	default:
		fail(w, app, msgInvalidAction)
	}
}

// sectionFromQuery reads the (type, category, subject) triple that identifies
// a section. A missing or empty subject means the category-wide section.
func sectionFromQuery(r *http.Request) (string, string, *string) {
	q := r.URL.Query()
	sectionType := strings.TrimSpace(q.Get("section_type"))
	category := strings.TrimSpace(q.Get("section_category"))
	var subject *string
	if s := strings.TrimSpace(q.Get("section_subject")); s != "" {
		subject = &s
	}
	return sectionType, category, subject
}

func subjectPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// handleGetComments returns one page of a section's comment tree plus the
// section's reaction tallies and comment stats in a single response.
func handleGetComments(w http.ResponseWriter, r *http.Request, app App) {
	sectionType, category, subject := sectionFromQuery(r)
	if sectionType == "" || category == "" {
		fail(w, app, msgMissingSection)
		return
	}

	limit := config.DefaultCommentPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
		if limit > config.MaxCommentPageSize {
			limit = config.MaxCommentPageSize
		}
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}

	store := app.Store()
	section, err := store.GetSection(sectionType, category, subject)
	if err != nil {
		if err == database.ErrNotFound {
			fail(w, app, msgSectionNotFound)
			return
		}
		app.Logger().Error("Failed to look up section", "error", err)
		fail(w, app, msgGenericError)
		return
	}

	flat, err := store.GetCommentsBySection(section.ID, limit, offset)
	if err != nil {
		app.Logger().Error("Failed to fetch comments", "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}

	ids := make([]int64, len(flat))
	for i := range flat {
		ids[i] = flat[i].ID
	}
	counts, err := store.GetCommentReactionCounts(ids)
	if err != nil {
		app.Logger().Error("Failed to fetch reaction counts", "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	for i := range flat {
		if c, ok := counts[flat[i].ID]; ok {
			flat[i].Reactions = c
		} else {
			flat[i].Reactions = map[string]int{}
		}
	}

	user := sessionUser(r, app)
	userSectionReaction := ""
	if user != nil {
		mine, err := store.GetUserCommentReactions(user.ID, ids)
		if err != nil {
			app.Logger().Error("Failed to fetch user reactions", "user_id", user.ID, "error", err)
			fail(w, app, msgGenericError)
			return
		}
		for i := range flat {
			flat[i].UserReaction = mine[flat[i].ID]
		}
		userSectionReaction, err = store.GetUserSectionReaction(user.ID, section.ID)
		if err != nil {
			app.Logger().Error("Failed to fetch user section reaction", "user_id", user.ID, "error", err)
			fail(w, app, msgGenericError)
			return
		}
	}

	comments := models.OrganizeComments(flat)

	stats, err := store.GetCommentStats(section.ID)
	if err != nil {
		app.Logger().Error("Failed to fetch comment stats", "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	sectionReactions, err := store.GetSectionReactions(section.ID)
	if err != nil {
		app.Logger().Error("Failed to fetch section reactions", "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}

	succeed(w, app, map[string]interface{}{
		"comments":              comments,
		"stats":                 stats,
		"section":               section,
		"section_reactions":     sectionReactions,
		"user_section_reaction": userSectionReaction,
	})
}

func handleAddComment(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, "Vui lòng đăng nhập để bình luận")
		return
	}
	if !allowRate(r, app) {
		fail(w, app, msgRateLimited)
		return
	}

	var req struct {
		SectionType     string `json:"section_type"`
		SectionCategory string `json:"section_category"`
		SectionSubject  string `json:"section_subject"`
		Content         string `json:"content"`
		ParentCommentID *int64 `json:"parent_comment_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, app, msgMissingFields)
		return
	}
	if req.SectionType == "" || req.SectionCategory == "" {
		fail(w, app, msgMissingSection)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		fail(w, app, "Nội dung bình luận không được để trống")
		return
	}
	if utf8.RuneCountInString(req.Content) > config.MaxCommentLen {
		fail(w, app, "Bình luận không được quá 2000 ký tự")
		return
	}

	section, err := app.Store().GetSection(req.SectionType, req.SectionCategory, subjectPtr(req.SectionSubject))
	if err != nil {
		if err == database.ErrNotFound {
			fail(w, app, msgSectionNotFound)
			return
		}
		app.Logger().Error("Failed to look up section", "error", err)
		fail(w, app, msgGenericError)
		return
	}

	commentID, err := app.Store().AddComment(user.ID, section.ID, req.ParentCommentID, req.Content)
	if err != nil {
		app.Logger().Error("Failed to add comment", "user_id", user.ID, "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	app.Logger().Info("Comment added", "user_id", user.ID, "section_id", section.ID, "comment_id", commentID)
	succeed(w, app, map[string]interface{}{
		"message":    "Bình luận đã được thêm",
		"comment_id": commentID,
	})
}

func handleEditComment(w http.ResponseWriter, r *http.Request, app App) {
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
		CommentID int64  `json:"comment_id"`
		Content   string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil || req.CommentID == 0 {
		fail(w, app, msgMissingFields)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		fail(w, app, "Nội dung bình luận không được để trống")
		return
	}
	if utf8.RuneCountInString(req.Content) > config.MaxCommentLen {
		fail(w, app, "Bình luận không được quá 2000 ký tự")
		return
	}

	if err := app.Store().EditComment(user.ID, req.CommentID, req.Content); err != nil {
		// Not-found and not-owner intentionally share one message.
		if err == database.ErrNotFound || err == database.ErrNotOwner {
			fail(w, app, "Không có quyền sửa bình luận này")
			return
		}
		app.Logger().Error("Failed to edit comment", "comment_id", req.CommentID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{"message": "Bình luận đã được cập nhật"})
}

func handleDeleteComment(w http.ResponseWriter, r *http.Request, app App) {
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
		CommentID int64 `json:"comment_id"`
	}
	if err := decodeBody(r, &req); err != nil || req.CommentID == 0 {
		fail(w, app, "Thiếu ID bình luận")
		return
	}

	if err := app.Store().DeleteComment(user.ID, req.CommentID, user.IsAdmin); err != nil {
		if err == database.ErrNotFound || err == database.ErrNotOwner {
			fail(w, app, "Không có quyền xóa bình luận này")
			return
		}
		app.Logger().Error("Failed to delete comment", "comment_id", req.CommentID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{"message": "Bình luận đã được xóa"})
}

func handleReactComment(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, "Vui lòng đăng nhập để thả cảm xúc")
		return
	}
	if !allowRate(r, app) {
		fail(w, app, msgRateLimited)
		return
	}

	var req struct {
		CommentID    int64  `json:"comment_id"`
		ReactionType string `json:"reaction_type"`
	}
	if err := decodeBody(r, &req); err != nil || req.CommentID == 0 || req.ReactionType == "" {
		fail(w, app, msgMissingFields)
		return
	}
	if !config.ValidReactions[req.ReactionType] {
		fail(w, app, "Loại reaction không hợp lệ")
		return
	}

	result, err := app.Store().ToggleCommentReaction(user.ID, req.CommentID, req.ReactionType)
	if err != nil {
		app.Logger().Error("Failed to toggle comment reaction", "comment_id", req.CommentID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{
		"action":   result,
		"reaction": req.ReactionType,
	})
}

func handleReactSection(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, "Vui lòng đăng nhập để thả cảm xúc")
		return
	}
	if !allowRate(r, app) {
		fail(w, app, msgRateLimited)
		return
	}

	var req struct {
		SectionType     string `json:"section_type"`
		SectionCategory string `json:"section_category"`
		SectionSubject  string `json:"section_subject"`
		ReactionType    string `json:"reaction_type"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, app, msgMissingFields)
		return
	}
	if req.SectionType == "" || req.SectionCategory == "" {
		fail(w, app, msgMissingSection)
		return
	}
	if !config.ValidReactions[req.ReactionType] {
		fail(w, app, "Loại reaction không hợp lệ")
		return
	}

	section, err := app.Store().GetSection(req.SectionType, req.SectionCategory, subjectPtr(req.SectionSubject))
	if err != nil {
		if err == database.ErrNotFound {
			fail(w, app, msgSectionNotFound)
			return
		}
		app.Logger().Error("Failed to look up section", "error", err)
		fail(w, app, msgGenericError)
		return
	}

	result, err := app.Store().ToggleSectionReaction(user.ID, section.ID, req.ReactionType)
	if err != nil {
		app.Logger().Error("Failed to toggle section reaction", "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	reactions, err := app.Store().GetSectionReactions(section.ID)
	if err != nil {
		app.Logger().Error("Failed to fetch section reactions", "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{
		"action":    result,
		"reaction":  req.ReactionType,
		"reactions": reactions,
	})
}

func handleGetSectionStats(w http.ResponseWriter, r *http.Request, app App) {
	sectionType, category, subject := sectionFromQuery(r)
	if sectionType == "" || category == "" {
		fail(w, app, msgMissingSection)
		return
	}

	section, err := app.Store().GetSection(sectionType, category, subject)
	if err != nil {
		if err == database.ErrNotFound {
			fail(w, app, msgSectionNotFound)
			return
		}
		app.Logger().Error("Failed to look up section", "error", err)
		fail(w, app, msgGenericError)
		return
	}

	stats, err := app.Store().GetSectionStats(section.ID)
	if err != nil {
		app.Logger().Error("Failed to fetch section stats", "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	reactions, err := app.Store().GetSectionReactions(section.ID)
	if err != nil {
		app.Logger().Error("Failed to fetch section reactions", "section_id", section.ID, "error", err)
		fail(w, app, msgGenericError)
		return
	}

	succeed(w, app, map[string]interface{}{
		"section":   section,
		"stats":     stats,
		"reactions": reactions,
	})
}
