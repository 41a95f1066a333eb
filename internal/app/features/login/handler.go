// internal/app/features/login/handler.go
package login

import (
	"encoding/json"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/pharmausage/internal/app/features/errors"
	"github.com/dalemusser/pharmausage/internal/app/system/apperr"
	"github.com/dalemusser/pharmausage/internal/app/system/auditlog"
	"github.com/dalemusser/pharmausage/internal/app/system/auth"
	"github.com/dalemusser/pharmausage/internal/app/system/limits"
	"github.com/dalemusser/pharmausage/internal/app/system/metrics"
	"github.com/dalemusser/pharmausage/internal/app/system/navigation"
	"github.com/dalemusser/pharmausage/internal/app/system/ratelimit"
	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"github.com/dalemusser/pharmausage/internal/app/system/signin"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	SignIn     *signin.Service
	Limiter    *ratelimit.LoginLimiter
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, svc *signin.Service, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		SignIn:     svc,
		Limiter:    limiter,
		AuditLog:   audit,
	}
}

// loginResponse is returned on a successful sign-in.
type loginResponse struct {
	navigation.Route
	Return string `json:"return,omitempty"`
}

// readCredentials accepts a JSON body or a urlencoded form.
func readCredentials(r *http.Request) (signin.Credentials, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			signin.Credentials
			Return string `json:"return"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return signin.Credentials{}, "", err
		}
		return body.Credentials, body.Return, nil
	}
	if err := r.ParseForm(); err != nil {
		return signin.Credentials{}, "", err
	}
	return signin.Credentials{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}, r.FormValue("return"), nil
}

// HandleLoginPost handles POST /login.
//
// 200 with the routed session on success, 401 with the sign-in message on
// bad credentials and 429 when the IP or account is throttled. Browser
// form posts are redirected to the return path (or /dashboard) instead.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxAuthBodySize)
	creds, ret, err := readCredentials(r)
	if err != nil {
		errorsfeature.Write(w, h.Log, apperr.Invalid("login", "Malformed login request"))
		return
	}

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, creds.Email); !ok {
			limitType := "ip"
			if strings.Contains(msg, "account") {
				limitType = "email"
			}
			h.AuditLog.LoginFailedRateLimit(r.Context(), r, creds.Email, limitType)
			metrics.LoginAttempts.WithLabelValues(metrics.OutcomeLimited).Inc()
			errorsfeature.Write(w, h.Log, apperr.RateLimited("login", msg))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.SignIn.SignIn(ctx, r, creds)
	if err != nil {
		errorsfeature.Write(w, h.Log, err)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u); err != nil {
		h.Log.Error("login: save session", zap.Error(err))
		errorsfeature.Write(w, h.Log, apperr.AuthFailure(apperr.AuthOther, err))
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(creds.Email)
	}

	s := session.WithRole(session.Identity{UserID: u.ID.Hex(), Email: u.Email}, *u)
	route := navigation.Describe(s)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") &&
		strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/dashboard"), http.StatusSeeOther)
		return
	}

	resp := loginResponse{Route: route}
	if ret != "" {
		resp.Return = urlutil.SafeReturn(ret, "", "")
	}
	errorsfeature.JSON(w, http.StatusOK, resp)
}
