package userinfo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/pharmausage/internal/app/features/userinfo"
	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"github.com/dalemusser/pharmausage/internal/testutil"
)

type sessionBody struct {
	State   string   `json:"state"`
	Role    string   `json:"role"`
	Name    string   `json:"name"`
	Home    string   `json:"home"`
	Screens []string `json:"screens"`
}

func serve(t *testing.T, r *http.Request) sessionBody {
	t.Helper()
	rec := httptest.NewRecorder()
	userinfo.NewHandler().ServeSession(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var body sessionBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return body
}

func TestServeSession_Unauthenticated(t *testing.T) {
	body := serve(t, httptest.NewRequest("GET", "/session", nil))

	if body.State != "unauthenticated" {
		t.Errorf("state = %q", body.State)
	}
	if body.Home != "login" {
		t.Errorf("home = %q, want login", body.Home)
	}
	if len(body.Screens) != 2 {
		t.Errorf("screens = %v, want login and forgot-password", body.Screens)
	}
}

func TestServeSession_UnknownRole(t *testing.T) {
	r := testutil.WithSession(httptest.NewRequest("GET", "/session", nil),
		session.UnknownRole(session.Identity{UserID: "64b7f0c2a1b2c3d4e5f60718", Email: "x@example.com"}))
	body := serve(t, r)

	if body.State != "authenticated_unknown_role" {
		t.Errorf("state = %q", body.State)
	}
	if body.Role != "" || body.Home != "login" {
		t.Errorf("unknown role must route to login, got %+v", body)
	}
}

func TestServeSession_WithRole(t *testing.T) {
	tests := []struct {
		name    string
		r       *http.Request
		home    string
		screens int
	}{
		{"pharmacy", testutil.WithUser(httptest.NewRequest("GET", "/session", nil), testutil.PharmacyUser()), "pharmacy-home", 1},
		{"marketing", testutil.WithUser(httptest.NewRequest("GET", "/session", nil), testutil.MarketingUser()), "marketing-home", 2},
		{"company", testutil.WithUser(httptest.NewRequest("GET", "/session", nil), testutil.CompanyUser()), "company-home", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := serve(t, tt.r)
			if body.State != "authenticated_with_role" || body.Role != tt.name {
				t.Errorf("unexpected session %+v", body)
			}
			if body.Home != tt.home || len(body.Screens) != tt.screens {
				t.Errorf("home/screens = %q/%v", body.Home, body.Screens)
			}
		})
	}
}
