// internal/app/features/forgotpassword/handler.go
package forgotpassword

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/pharmausage/internal/app/features/errors"
	"github.com/dalemusser/pharmausage/internal/app/store/passwordreset"
	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/apperr"
	"github.com/dalemusser/pharmausage/internal/app/system/auditlog"
	"github.com/dalemusser/pharmausage/internal/app/system/limits"
	"github.com/dalemusser/pharmausage/internal/app/system/mailer"
	"github.com/dalemusser/pharmausage/internal/app/system/metrics"
	"github.com/dalemusser/pharmausage/internal/app/system/normalize"
	"github.com/dalemusser/pharmausage/internal/app/system/ratelimit"
	"github.com/dalemusser/pharmausage/internal/app/system/signin"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MsgAccepted is returned for every well-formed request so the response
// does not reveal whether an account exists.
const MsgAccepted = "If an account exists for that email, a reset link has been sent."

// MsgInvalidToken is returned when a reset token is unknown, used or expired.
const MsgInvalidToken = "This reset link is invalid or has expired."

var validate = validator.New()

type resetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserStore is the part of the user store the reset flow needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, password string) error
}

type Handler struct {
	Log      *zap.Logger
	Users    UserStore
	Resets   *passwordreset.Store
	Mailer   mailer.Sender
	AuditLog *auditlog.Logger
	Limiter  *ratelimit.Limiter // per client IP; nil disables
	BaseURL  string
	SiteName string
}

func NewHandler(users UserStore, resets *passwordreset.Store, mail mailer.Sender, audit *auditlog.Logger, limiter *ratelimit.Limiter, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Users:    users,
		Resets:   resets,
		Mailer:   mail,
		AuditLog: audit,
		Limiter:  limiter,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		SiteName: "PharmaUsage",
	}
}

// formatExpiry renders a duration as "1 hour", "30 minutes".
func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, formFields ...string) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxAuthBodySize)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	m := make(map[string]string, len(formFields))
	for _, f := range formFields {
		m[f] = r.PostForm.Get(f)
	}
	b, _ := json.Marshal(m)
	return json.Unmarshal(b, dst)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forgot-password                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleRequest starts a reset. It answers 202 for every well-formed
// email; only a known active account receives a message.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(w, r, &body, "email"); err != nil {
		errorsfeature.Write(w, h.Log, apperr.Invalid("forgot-password", "Malformed request"))
		return
	}
	email := normalize.Email(body.Email)
	if !signin.ValidEmail(email) {
		errorsfeature.Write(w, h.Log, apperr.Invalid("forgot-password", apperr.MsgInvalidEmail))
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		metrics.ResetEmails.WithLabelValues(metrics.OutcomeLimited).Inc()
		errorsfeature.Write(w, h.Log, apperr.RateLimited("forgot-password",
			"Too many reset requests. Please wait before trying again."))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "forgot-password")
	defer cancel()

	if err := h.sendReset(ctx, r, email); err != nil {
		metrics.ResetEmails.WithLabelValues(metrics.OutcomeFailure).Inc()
		h.Log.Error("forgot-password: reset not sent", zap.String("email", email), zap.Error(err))
	}

	errorsfeature.JSON(w, http.StatusAccepted, map[string]string{"message": MsgAccepted})
}

func (h *Handler) sendReset(ctx context.Context, r *http.Request, email string) error {
	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.Log.Info("forgot-password: no account", zap.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsDisabled() {
		h.Log.Info("forgot-password: account disabled", zap.String("user_id", u.ID.Hex()))
		return nil
	}

	token, err := h.Resets.Create(ctx, u.ID, u.Email)
	if err != nil {
		return fmt.Errorf("create reset: %w", err)
	}

	msg := mailer.BuildResetEmail(mailer.ResetEmailData{
		SiteName:  h.SiteName,
		Name:      u.FullName,
		ResetLink: h.BaseURL + "/reset-password?token=" + url.QueryEscape(token),
		ExpiresIn: formatExpiry(h.Resets.Expiry()),
	})
	msg.To = u.Email
	if err := h.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	metrics.ResetEmails.WithLabelValues(metrics.OutcomeSuccess).Inc()
	h.AuditLog.PasswordResetRequested(ctx, r, u.ID, u.Email)
	h.Log.Info("password reset email sent", zap.String("user_id", u.ID.Hex()))
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forgot-password/reset                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleReset verifies a reset token, sets the new password and then
// deletes the token. A failed password write leaves the token usable.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(w, r, &req, "token", "password"); err != nil {
		errorsfeature.Write(w, h.Log, apperr.Invalid("reset-password", "Malformed request"))
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := validate.Struct(req); err != nil {
		msg := MsgInvalidToken
		if req.Token != "" {
			msg = "Password must be at least 6 characters."
		}
		errorsfeature.Write(w, h.Log, apperr.Invalid("reset-password", msg))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reset-password")
	defer cancel()

	reset, err := h.Resets.Verify(ctx, req.Token)
	if errors.Is(err, passwordreset.ErrNotFound) {
		h.AuditLog.PasswordResetFailed(ctx, r, "invalid_or_expired_token")
		errorsfeature.Write(w, h.Log, apperr.Invalid("reset-password", MsgInvalidToken))
		return
	}
	if err != nil {
		errorsfeature.Write(w, h.Log, fmt.Errorf("verify reset: %w", err))
		return
	}

	if err := h.Users.SetPassword(ctx, reset.UserID, req.Password); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.AuditLog.PasswordResetFailed(ctx, r, "user_not_found")
			errorsfeature.Write(w, h.Log, apperr.Invalid("reset-password", MsgInvalidToken))
			return
		}
		errorsfeature.Write(w, h.Log, fmt.Errorf("set password: %w", err))
		return
	}

	if err := h.Resets.Delete(ctx, reset.ID); err != nil && !errors.Is(err, passwordreset.ErrNotFound) {
		h.Log.Warn("password set but reset token not deleted", zap.String("reset_id", reset.ID.Hex()), zap.Error(err))
	}

	h.AuditLog.PasswordResetCompleted(ctx, r, reset.UserID, reset.Email)
	errorsfeature.JSON(w, http.StatusOK, map[string]string{"message": "Your password has been updated."})
}
