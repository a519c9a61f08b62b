package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"doctalk/config"
	"doctalk/database"
	"doctalk/models"
	"doctalk/utils"
)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	store       *database.Store
	rateLimiter *models.RateLimiter
	logger      *slog.Logger
	storage     models.StorageService
	avatarDir   string
	backupDir   string
}

func (a *MockApplication) Store() *database.Store           { return a.store }
func (a *MockApplication) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *MockApplication) Logger() *slog.Logger             { return a.logger }
func (a *MockApplication) Storage() models.StorageService   { return a.storage }
func (a *MockApplication) AvatarDir() string                { return a.avatarDir }
func (a *MockApplication) BackupDir() string                { return a.backupDir }

// setupTestApp creates a full application stack backed by a temp database.
func setupTestApp(t *testing.T) *MockApplication {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	dbDir, err := os.MkdirTemp("", "doctalk_test_db_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dbDir, "test.db") + "?_journal_mode=WAL&_foreign_keys=on&_txlock=immediate"
	store, err := database.InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	avatarDir, err := os.MkdirTemp("", "doctalk_test_avatars_*")
	if err != nil {
		t.Fatalf("Failed to create temp avatar dir: %v", err)
	}
	backupDir, err := os.MkdirTemp("", "doctalk_test_backups_*")
	if err != nil {
		t.Fatalf("Failed to create temp backup dir: %v", err)
	}

	app := &MockApplication{
		store: store,
		// Generous limits so tests never trip the limiter.
		rateLimiter: models.NewRateLimiter(time.Millisecond, 1000, time.Hour, 24*time.Hour),
		logger:      logger,
		storage:     &utils.LocalStorage{AvatarDir: avatarDir},
		avatarDir:   avatarDir,
		backupDir:   backupDir,
	}

	t.Cleanup(func() {
		app.store.DB.Close()
		os.RemoveAll(dbDir)
		os.RemoveAll(avatarDir)
		os.RemoveAll(backupDir)
	})

	return app
}

// postJSON performs a JSON POST against a handler and decodes the envelope.
func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}, sessionToken string) map[string]interface{} {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: config.SessionCookieName, Value: sessionToken})
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return resp
}

// getJSON performs a GET against a handler and decodes the envelope.
func getJSON(t *testing.T, handler http.HandlerFunc, path string, sessionToken string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: config.SessionCookieName, Value: sessionToken})
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return resp
}

func expectSuccess(t *testing.T, resp map[string]interface{}) {
	t.Helper()
	if resp["success"] != true {
		t.Fatalf("Expected success response, got %+v", resp)
	}
}

func expectFailure(t *testing.T, resp map[string]interface{}, message string) {
	t.Helper()
	if resp["success"] != false {
		t.Fatalf("Expected failure response, got %+v", resp)
	}
	if message != "" && resp["message"] != message {
		t.Errorf("Expected message %q, got %q", message, resp["message"])
	}
}

// registerAndLogin creates a user through the auth handler and returns the
// session token from the login response.
func registerAndLogin(t *testing.T, app *MockApplication, username string) string {
	t.Helper()
	authHandler := http.HandlerFunc(MakeHandler(app, HandleAuth))

	resp := postJSON(t, authHandler, "/api/auth?action=register", map[string]interface{}{
		"username":     username,
		"email":        username + "@example.com",
		"password":     "secret123",
		"display_name": "User " + username,
	}, "")
	expectSuccess(t, resp)

	resp = postJSON(t, authHandler, "/api/auth?action=login", map[string]interface{}{
		"username": username,
		"password": "secret123",
	}, "")
	expectSuccess(t, resp)

	token, ok := resp["session_token"].(string)
	if !ok || token == "" {
		t.Fatalf("Expected session token in login response, got %+v", resp)
	}
	return token
}

func grantAdmin(t *testing.T, app *MockApplication, username string) {
	t.Helper()
	if _, err := app.store.DB.Exec("UPDATE users SET is_admin = 1 WHERE username = ?", username); err != nil {
		t.Fatalf("Failed to grant admin to %s: %v", username, err)
	}
}
