package utils

import (
	"net/http/httptest"
	"testing"
)

func TestGenerateSessionToken(t *testing.T) {
	token, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(token))
	}
	other, _ := GenerateSessionToken()
	if token == other {
		t.Error("Two generated tokens must not collide")
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.com", "việt@example.vn"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("Expected %q to be valid", e)
		}
	}
	invalid := []string{"", "plain", "@missing.local", "no-at.example.com", "spaces in@example.com", "trailing@nodot"}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("Expected %q to be invalid", e)
		}
	}
}

func TestGetIPAddress(t *testing.T) {
	t.Run("CF Header Wins", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("CF-Connecting-IP", "203.0.113.7")
		req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
		if ip := GetIPAddress(req); ip != "203.0.113.7" {
			t.Errorf("Expected CF header IP, got %s", ip)
		}
	})

	t.Run("First Forwarded Hop", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
		if ip := GetIPAddress(req); ip != "198.51.100.1" {
			t.Errorf("Expected first forwarded IP, got %s", ip)
		}
	})

	t.Run("Falls Back To RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.0.2.9:54321"
		if ip := GetIPAddress(req); ip != "192.0.2.9" {
			t.Errorf("Expected remote addr host, got %s", ip)
		}
	})
}
