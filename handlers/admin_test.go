package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleAdmin(t *testing.T) {
	app := setupTestApp(t)
	handler := http.HandlerFunc(MakeHandler(app, HandleAdmin))
	adminToken := registerAndLogin(t, app, "sysop")
	userToken := registerAndLogin(t, app, "plebeian")

	t.Run("Requires Login", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/admin?action=backup_db", map[string]interface{}{}, "")
		expectFailure(t, resp, msgLoginRequired)
	})

	t.Run("Requires Admin", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/admin?action=backup_db", map[string]interface{}{}, userToken)
		expectFailure(t, resp, msgNoAdmin)
	})

	grantAdmin(t, app, "sysop")

	t.Run("Backup Creates File And Audits", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/admin?action=backup_db", map[string]interface{}{}, adminToken)
		expectSuccess(t, resp)

		backupPath, _ := resp["backup_path"].(string)
		if !strings.HasPrefix(filepath.Base(backupPath), "doctalk_backup_") {
			t.Fatalf("Unexpected backup path: %q", backupPath)
		}
		if _, err := os.Stat(backupPath); err != nil {
			t.Errorf("Backup file missing: %v", err)
		}

		logResp := getJSON(t, handler, "/api/admin?action=admin_log", adminToken)
		expectSuccess(t, logResp)
		actions, ok := logResp["actions"].([]interface{})
		if !ok || len(actions) == 0 {
			t.Fatalf("Expected audit entries, got %+v", logResp["actions"])
		}
		first := actions[0].(map[string]interface{})
		if first["action_type"] != "backup_db" {
			t.Errorf("Expected backup_db audit entry, got %v", first["action_type"])
		}
	})

	t.Run("Unknown Action", func(t *testing.T) {
		resp := getJSON(t, handler, "/api/admin?action=explode", adminToken)
		expectFailure(t, resp, msgInvalidAction)
	})
}

func TestHandleSections(t *testing.T) {
	app := setupTestApp(t)
	handler := http.HandlerFunc(MakeHandler(app, HandleSections))
	adminToken := registerAndLogin(t, app, "curator")
	grantAdmin(t, app, "curator")

	t.Run("List Includes Seeded Section", func(t *testing.T) {
		resp := getJSON(t, handler, "/api/sections?action=list_sections", "")
		expectSuccess(t, resp)
		sections, ok := resp["sections"].([]interface{})
		if !ok || len(sections) == 0 {
			t.Fatalf("Expected at least the seeded section, got %+v", resp["sections"])
		}
	})

	t.Run("Create Section", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/sections?action=create_section", map[string]interface{}{
			"section_type":     "document",
			"section_category": "physics",
			"section_subject":  "mechanics",
			"title":            "Cơ học",
		}, adminToken)
		expectSuccess(t, resp)
		if resp["section_id"].(float64) == 0 {
			t.Errorf("Expected section_id, got %+v", resp)
		}

		listResp := getJSON(t, handler, "/api/sections?action=list_sections", "")
		sections := listResp["sections"].([]interface{})
		found := false
		for _, s := range sections {
			if s.(map[string]interface{})["title"] == "Cơ học" {
				found = true
			}
		}
		if !found {
			t.Error("Expected new section in listing")
		}
	})

	t.Run("Create Requires Admin", func(t *testing.T) {
		resp := postJSON(t, handler, "/api/sections?action=create_section", map[string]interface{}{
			"section_type":     "document",
			"section_category": "chemistry",
			"title":            "Hóa học",
		}, "")
		expectFailure(t, resp, msgLoginRequired)
	})

	t.Run("Popular Reactions", func(t *testing.T) {
		resp := getJSON(t, handler, "/api/sections?action=popular_reactions", "")
		expectSuccess(t, resp)
	})
}
