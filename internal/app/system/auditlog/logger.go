// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/pharmausage/internal/app/store/audit"
	"github.com/dalemusser/pharmausage/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	ToAll = "all" // MongoDB + zap
	ToDB  = "db"  // MongoDB only
	ToLog = "log" // zap only
	Off   = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, password reset).
	Auth string
	// Admin controls logging for operator actions (seed-user, add-usage).
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via audit.Store) and/or structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil store downgrades "db" and "all"
// to zap-only.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// requestMeta extracts client IP and user agent. CLI callers pass nil.
func requestMeta(r *http.Request) (ip, ua string) {
	if r == nil {
		return "cli", ""
	}
	return ratelimit.ClientIP(r), r.UserAgent()
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = ToAll
	}
	if setting == Off {
		return
	}

	if setting == ToAll || setting == ToLog || l.store == nil {
		l.logToZap(event)
	}
	if (setting == ToAll || setting == ToDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) auth(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, email, failure string, details map[string]string) {
	ip, ua := requestMeta(r)
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		Email:         email,
		IP:            ip,
		UserAgent:     ua,
		Success:       failure == "",
		FailureReason: failure,
		Details:       details,
	})
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email, role, channel string) {
	l.auth(ctx, r, audit.EventLoginSuccess, &userID, email, "", map[string]string{
		"role":    role,
		"channel": channel,
	})
}

// LoginFailedUserNotFound logs a sign-in for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, email string) {
	l.auth(ctx, r, audit.EventLoginFailedUserNotFound, nil, email, "user not found", nil)
}

// LoginFailedWrongPassword logs a sign-in with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginFailedWrongPassword, &userID, email, "wrong password", nil)
}

// LoginFailedUserDisabled logs a sign-in for a disabled account.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginFailedUserDisabled, &userID, email, "user disabled", nil)
}

// LoginFailedRateLimit logs a throttled sign-in.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email, limitType string) {
	l.auth(ctx, r, audit.EventLoginFailedRateLimit, nil, email, "rate limit exceeded", map[string]string{
		"limit_type": limitType,
	})
}

// Logout logs a sign-out. userIDStr comes from the session identity and
// may be empty.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.auth(ctx, r, audit.EventLogout, userID, "", "", nil)
}

// PasswordResetRequested logs that a reset link was issued.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventPasswordResetRequested, &userID, email, "", nil)
}

// PasswordResetCompleted logs a successful password change via reset link.
func (l *Logger) PasswordResetCompleted(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventPasswordResetCompleted, &userID, email, "", nil)
}

// PasswordResetFailed logs a rejected reset (bad or expired token).
func (l *Logger) PasswordResetFailed(ctx context.Context, r *http.Request, reason string) {
	l.auth(ctx, r, audit.EventPasswordResetFailed, nil, "", reason, nil)
}

// --- Operator Events ---

// UserCreated logs a user created from the operator CLI.
func (l *Logger) UserCreated(ctx context.Context, userID primitive.ObjectID, email, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		UserID:    &userID,
		Email:     email,
		IP:        "cli",
		Success:   true,
		Details:   map[string]string{"role": role},
	})
}

// UsageSet logs a daily count written from the operator CLI.
func (l *Logger) UsageSet(ctx context.Context, pharmacyID primitive.ObjectID, date string, count int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUsageSet,
		UserID:    &pharmacyID,
		IP:        "cli",
		Success:   true,
		Details: map[string]string{
			"date":  date,
			"count": formatInt(count),
		},
	})
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
