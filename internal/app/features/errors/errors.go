// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/pharmausage/internal/app/system/apperr"
	"github.com/dalemusser/pharmausage/internal/app/system/navigation"
	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"go.uber.org/zap"
)

// Response is the JSON body of every error reply.
type Response struct {
	Error string            `json:"error"`
	Kind  string            `json:"kind,omitempty"`
	State string            `json:"state,omitempty"`
	Home  navigation.Screen `json:"home,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write maps err to a status and user-facing message. Fetch failures and
// unclassified errors are logged with their cause; the client only ever
// sees the message.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)
	if log != nil && (kind == apperr.KindFetchFailure || kind == apperr.KindUnknown) {
		log.Error("request failed", zap.String("kind", kind.String()), zap.Error(err))
	}
	resp := Response{Error: apperr.Message(err)}
	if kind != apperr.KindUnknown {
		resp.Kind = kind.String()
	}
	JSON(w, status, resp)
}

// Unauthorized answers a request that needs a resolved role. The body
// reports the session state so clients can tell a signed-out user from
// one whose role could not be resolved.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	s := session.FromRequest(r)
	JSON(w, http.StatusUnauthorized, Response{
		Error: "sign in required",
		State: string(s.State()),
		Home:  navigation.ForSession(s).Home(),
	})
}

// Forbidden answers a request for an entity outside the user's scope.
func Forbidden(w http.ResponseWriter, r *http.Request) {
	s := session.FromRequest(r)
	JSON(w, http.StatusForbidden, Response{
		Error: "You don't have permission to view this page.",
		State: string(s.State()),
		Home:  navigation.ForSession(s).Home(),
	})
}
