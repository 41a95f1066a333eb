// Package signin checks email/password credentials and records the outcome.
package signin

import (
	"context"
	"errors"
	"net/http"

	loginstore "github.com/dalemusser/pharmausage/internal/app/store/logins"
	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/apperr"
	"github.com/dalemusser/pharmausage/internal/app/system/auditlog"
	"github.com/dalemusser/pharmausage/internal/app/system/metrics"
	"github.com/dalemusser/pharmausage/internal/app/system/normalize"
	"github.com/dalemusser/pharmausage/internal/app/system/ratelimit"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// Credentials is a sign-in request.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidEmail reports whether s is a syntactically valid address.
func ValidEmail(s string) bool {
	return validate.Var(normalize.Email(s), "required,email") == nil
}

// UserLookup finds a user by email. It returns userstore.ErrNotFound when absent.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// LoginRecorder persists successful sign-ins.
type LoginRecorder interface {
	Create(ctx context.Context, rec models.LoginRecord) error
}

// Service authenticates users.
type Service struct {
	users  UserLookup
	logins LoginRecorder
	audit  *auditlog.Logger
	log    *zap.Logger
}

// New creates a Service. logins and audit may be nil.
func New(users UserLookup, logins LoginRecorder, audit *auditlog.Logger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, logins: logins, audit: audit, log: logger}
}

// SignIn verifies creds and returns the user. r is the originating HTTP
// request, or nil for the CLI channel. Every failure is an
// apperr.AuthFailure whose message is safe to show.
func (s *Service) SignIn(ctx context.Context, r *http.Request, creds Credentials) (*models.User, error) {
	creds.Email = normalize.Email(creds.Email)

	if err := validate.Var(creds.Email, "required,email"); err != nil {
		return nil, s.fail(apperr.AuthInvalidEmail, err)
	}
	if err := validate.Struct(creds); err != nil {
		return nil, s.fail(apperr.AuthOther, err)
	}

	u, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			s.audit.LoginFailedUserNotFound(ctx, r, creds.Email)
			return nil, s.fail(apperr.AuthUserNotFound, err)
		}
		s.log.Error("signin: user lookup failed", zap.Error(err))
		return nil, s.fail(apperr.AuthOther, err)
	}

	if u.IsDisabled() {
		s.audit.LoginFailedUserDisabled(ctx, r, u.ID, u.Email)
		return nil, s.fail(apperr.AuthOther, errors.New("user disabled"))
	}

	if !userstore.CheckPassword(u, creds.Password) {
		s.audit.LoginFailedWrongPassword(ctx, r, u.ID, u.Email)
		return nil, s.fail(apperr.AuthWrongPassword, errors.New("password mismatch"))
	}

	channel := loginstore.ChannelCLI
	rec := models.LoginRecord{UserID: u.ID, Role: u.Role, IP: "cli", Channel: channel}
	if r != nil {
		channel = loginstore.ChannelWeb
		rec = models.LoginRecord{UserID: u.ID, Role: u.Role, IP: ratelimit.ClientIP(r), UserAgent: r.UserAgent(), Channel: channel}
	}
	if s.logins != nil {
		if err := s.logins.Create(ctx, rec); err != nil {
			s.log.Warn("signin: failed to record login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}
	s.audit.LoginSuccess(ctx, r, u.ID, u.Email, u.Role, channel)
	metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()

	u.PasswordHash = ""
	return u, nil
}

func (s *Service) fail(reason apperr.AuthReason, err error) error {
	metrics.LoginAttempts.WithLabelValues(metrics.OutcomeFailure).Inc()
	return apperr.AuthFailure(reason, err)
}
