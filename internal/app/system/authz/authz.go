// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"

	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role, name, Mongo ObjectID, and a found flag.
// ok is true only for a session resolved to a role: a signed-in user whose
// document is missing or disabled is treated as a visitor.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	s := session.FromRequest(r)
	if !s.HasRole() || s.UserID().IsZero() {
		return "visitor", "", primitive.NilObjectID, false
	}
	return s.Role(), s.Name(), s.UserID(), true
}

// IsMarketing reports whether the current request's user is a marketing agent.
func IsMarketing(r *http.Request) bool { return HasRole(r, models.RoleMarketing) }

// IsCompany reports whether the current request's user is a company.
func IsCompany(r *http.Request) bool { return HasRole(r, models.RoleCompany) }

// UserSource reads the user documents that scoping decisions depend on.
type UserSource interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]models.User, error)
}

// CanViewMarketing reports whether the current user may open a marketer's
// detail screen. Only a company may, and only for a user whose role is
// marketing: the same set its home screen lists. A lookup error (including
// a missing document) is returned to the caller.
func CanViewMarketing(ctx context.Context, r *http.Request, marketingID primitive.ObjectID, users UserSource) (bool, error) {
	if !IsCompany(r) {
		return false, nil
	}
	m, err := users.GetUser(ctx, marketingID)
	if err != nil {
		return false, err
	}
	return m.Role == models.RoleMarketing, nil
}

// CanViewPharmacy reports whether the current user may open a pharmacy's
// detail screen. A marketer needs a direct link; a company needs the
// pharmacy to be linked to some marketing user.
func CanViewPharmacy(ctx context.Context, r *http.Request, pharmacyID primitive.ObjectID, users UserSource) (bool, error) {
	switch {
	case IsMarketing(r):
		return session.FromRequest(r).Links(pharmacyID), nil
	case IsCompany(r):
		marketers, err := users.ListUsersByRole(ctx, models.RoleMarketing)
		if err != nil {
			return false, err
		}
		for _, m := range marketers {
			for _, pid := range m.LinkedMachines {
				if pid == pharmacyID {
					return true, nil
				}
			}
		}
	}
	return false, nil
}
