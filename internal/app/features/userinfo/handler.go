// internal/app/features/userinfo/handler.go
package userinfo

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/pharmausage/internal/app/system/navigation"
	"github.com/dalemusser/pharmausage/internal/app/system/session"
)

// Handler reports the resolved session to the dashboard client.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeSession returns the current session and where it routes.
//
// Response format:
//
//	{ "state": "...", "role": "...", "name": "...", "home": "...", "screens": [...] }
//
// A signed-in user whose role could not be resolved reports state
// "authenticated_unknown_role" and the login screens.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(navigation.Describe(session.FromRequest(r)))
}
