// Package session resolves a signed-in identity into the role-bearing
// Session value that request handlers receive through their context.
package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/pharmausage/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// State is the resolver state carried by a Session.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateLoading         State = "loading"
	StateUnknownRole     State = "authenticated_unknown_role"
	StateWithRole        State = "authenticated_with_role"
)

// Identity is a signed-in principal before its user document is known.
type Identity struct {
	UserID string
	Email  string
}

// Session is an immutable snapshot of who is signed in and in which role.
// The zero value is an unauthenticated session.
type Session struct {
	state    State
	identity Identity
	userID   primitive.ObjectID
	role     string
	name     string
	linked   []primitive.ObjectID
}

// Unauthenticated returns the signed-out session.
func Unauthenticated() Session {
	return Session{state: StateUnauthenticated}
}

// Loading returns the transient session emitted while a user document is fetched.
func Loading(id Identity) Session {
	return Session{state: StateLoading, identity: id}
}

// UnknownRole returns a signed-in session whose role could not be resolved.
func UnknownRole(id Identity) Session {
	return Session{state: StateUnknownRole, identity: id}
}

// WithRole returns a signed-in session carrying the user's role.
func WithRole(id Identity, u models.User) Session {
	linked := make([]primitive.ObjectID, len(u.LinkedMachines))
	copy(linked, u.LinkedMachines)
	return Session{
		state:    StateWithRole,
		identity: id,
		userID:   u.ID,
		role:     u.Role,
		name:     u.FullName,
		linked:   linked,
	}
}

// State reports the resolver state. The zero Session is unauthenticated.
func (s Session) State() State {
	if s.state == "" {
		return StateUnauthenticated
	}
	return s.state
}

// Identity returns the signed-in principal, if any.
func (s Session) Identity() (Identity, bool) {
	switch s.State() {
	case StateLoading, StateUnknownRole, StateWithRole:
		return s.identity, true
	}
	return Identity{}, false
}

// HasRole reports whether a user document was resolved.
func (s Session) HasRole() bool { return s.State() == StateWithRole }

// Role is the resolved role, or "" unless HasRole.
func (s Session) Role() string {
	if !s.HasRole() {
		return ""
	}
	return s.role
}

// Name is the user's display name, or "" unless HasRole.
func (s Session) Name() string { return s.name }

// UserID is the user document's ID, or NilObjectID unless HasRole.
func (s Session) UserID() primitive.ObjectID { return s.userID }

// Links reports whether id is among the user's linked entities.
func (s Session) Links(id primitive.ObjectID) bool {
	for _, l := range s.linked {
		if l == id {
			return true
		}
	}
	return false
}

type sessionJSON struct {
	State  State  `json:"state"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Name   string `json:"name,omitempty"`
}

// MarshalJSON renders the session for API responses.
func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{State: s.State(), Role: s.Role(), Name: s.Name()}
	if id, ok := s.Identity(); ok {
		out.UserID = id.UserID
		out.Email = id.Email
	}
	return json.Marshal(out)
}

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session in ctx, or an unauthenticated one.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Unauthenticated()
}

// FromRequest is FromContext(r.Context()).
func FromRequest(r *http.Request) Session {
	return FromContext(r.Context())
}
