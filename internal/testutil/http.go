package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithUser injects a resolved session for u, bypassing cookie handling.
func WithUser(r *http.Request, u models.User) *http.Request {
	s := session.WithRole(session.Identity{UserID: u.ID.Hex(), Email: u.Email}, u)
	return r.WithContext(session.WithSession(r.Context(), s))
}

// WithSession injects an arbitrary session.
func WithSession(r *http.Request, s session.Session) *http.Request {
	return r.WithContext(session.WithSession(r.Context(), s))
}

// PharmacyUser returns an in-memory pharmacy user.
func PharmacyUser() models.User {
	return models.User{ID: primitive.NewObjectID(), FullName: "Test Pharmacy", Email: "pharmacy@test.com", Role: models.RolePharmacy}
}

// MarketingUser returns an in-memory marketing user linked to pharmacies.
func MarketingUser(pharmacies ...primitive.ObjectID) models.User {
	return models.User{ID: primitive.NewObjectID(), FullName: "Test Marketing", Email: "marketing@test.com", Role: models.RoleMarketing, LinkedMachines: pharmacies}
}

// CompanyUser returns an in-memory company user linked to marketers.
func CompanyUser(marketers ...primitive.ObjectID) models.User {
	return models.User{ID: primitive.NewObjectID(), FullName: "Test Company", Email: "company@test.com", Role: models.RoleCompany, LinkedMachines: marketers}
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request with a JSON body.
func NewJSONRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	return r
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body: %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}

// AssertNotContains checks the response body does not contain s.
func (r *ResponseRecorder) AssertNotContains(t interface{ Errorf(string, ...any) }, s string) {
	if strings.Contains(r.Body.String(), s) {
		t.Errorf("response body unexpectedly contains %q", s)
	}
}
