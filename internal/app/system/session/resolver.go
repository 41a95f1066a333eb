package session

import (
	"context"

	"github.com/dalemusser/pharmausage/internal/domain/models"
	"go.uber.org/zap"
)

// UserSource loads the user document behind an identity.
// It returns (nil, nil) when no document exists.
type UserSource interface {
	UserDocument(ctx context.Context, userID string) (*models.User, error)
}

// Resolver turns identities into Sessions.
type Resolver struct {
	users UserSource
	log   *zap.Logger
}

// NewResolver constructs a Resolver over users.
func NewResolver(users UserSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{users: users, log: logger}
}

// Resolve fetches the user document for id and returns the session.
//
// A nil id yields an unauthenticated session. A missing, disabled, or
// unreadable document yields StateUnknownRole: the caller falls back to
// the login screens and never to a privileged one. Fetches are not retried.
func (res *Resolver) Resolve(ctx context.Context, id *Identity) Session {
	if id == nil || id.UserID == "" {
		return Unauthenticated()
	}

	u, err := res.users.UserDocument(ctx, id.UserID)
	switch {
	case err != nil:
		res.log.Error("session: user document fetch failed",
			zap.String("user_id", id.UserID), zap.Error(err))
		return UnknownRole(*id)
	case u == nil:
		res.log.Warn("session: no user document for identity",
			zap.String("user_id", id.UserID))
		return UnknownRole(*id)
	case u.IsDisabled():
		res.log.Info("session: user disabled", zap.String("user_id", id.UserID))
		return UnknownRole(*id)
	}
	return WithRole(*id, *u)
}

// Watch follows a stream of identity changes. A nil event means sign-out.
//
// For every sign-in it emits a Loading session followed by the resolved
// one. The returned channel closes when events closes or ctx is done.
func (res *Resolver) Watch(ctx context.Context, events <-chan *Identity) <-chan Session {
	out := make(chan Session)

	go func() {
		defer close(out)

		emit := func(s Session) bool {
			select {
			case out <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case id, ok := <-events:
				if !ok {
					return
				}
				if id == nil {
					if !emit(Unauthenticated()) {
						return
					}
					continue
				}
				if !emit(Loading(*id)) {
					return
				}
				if !emit(res.Resolve(ctx, id)) {
					return
				}
			}
		}
	}()

	return out
}
