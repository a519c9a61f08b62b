// doctalk/handlers/sections.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

// HandleSections dispatches section catalog actions.
func HandleSections(w http.ResponseWriter, r *http.Request, app App) {
	action := r.URL.Query().Get("action")

	switch action {
	case "list_sections":
		handleListSections(w, r, app)
	case "popular_reactions":
		handlePopularReactions(w, r, app)
	case "create_section":
		handleCreateSection(w, r, app)
	default:
		fail(w, app, msgInvalidAction)
	}
}

func handleListSections(w http.ResponseWriter, r *http.Request, app App) {
	sections, err := app.Store().GetAllSections()
	if err != nil {
		app.Logger().Error("Failed to fetch sections", "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{"sections": sections})
}

func handlePopularReactions(w http.ResponseWriter, r *http.Request, app App) {
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	popular, err := app.Store().GetPopularReactions(limit)
	if err != nil {
		app.Logger().Error("Failed to fetch popular reactions", "error", err)
		fail(w, app, msgGenericError)
		return
	}
	succeed(w, app, map[string]interface{}{"popular_reactions": popular})
}

func handleCreateSection(w http.ResponseWriter, r *http.Request, app App) {
	if r.Method != http.MethodPost {
		fail(w, app, msgInvalidAction)
		return
	}
	user := sessionUser(r, app)
	if user == nil {
		fail(w, app, msgLoginRequired)
		return
	}
	if !user.IsAdmin {
		fail(w, app, msgNoAdmin)
		return
	}

	var req struct {
		SectionType     string `json:"section_type"`
		SectionCategory string `json:"section_category"`
		SectionSubject  string `json:"section_subject"`
		Title           string `json:"title"`
		Description     string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, app, msgMissingFields)
		return
	}
	req.SectionType = strings.TrimSpace(req.SectionType)
	req.SectionCategory = strings.TrimSpace(req.SectionCategory)
	req.Title = strings.TrimSpace(req.Title)
	if req.SectionType == "" || req.SectionCategory == "" || req.Title == "" {
		fail(w, app, msgMissingFields)
		return
	}

	sectionID, err := app.Store().CreateSection(user.ID, req.SectionType, req.SectionCategory,
		subjectPtr(req.SectionSubject), req.Title, req.Description)
	if err != nil {
		app.Logger().Error("Failed to create section", "type", req.SectionType, "error", err)
		fail(w, app, msgGenericError)
		return
	}
	app.Logger().Info("Section created", "admin_id", user.ID, "section_id", sectionID)
	succeed(w, app, map[string]interface{}{
		"message":    "Đã tạo section mới",
		"section_id": sectionID,
	})
}
