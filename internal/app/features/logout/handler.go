// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	errorsfeature "github.com/dalemusser/pharmausage/internal/app/features/errors"
	"github.com/dalemusser/pharmausage/internal/app/system/auditlog"
	"github.com/dalemusser/pharmausage/internal/app/system/auth"
	"github.com/dalemusser/pharmausage/internal/app/system/navigation"
	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// HandleLogout handles POST /logout. The cookie is always expired, even
// when it no longer decodes, and the client is routed to the login screens.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := session.FromRequest(r).Identity(); ok {
		h.AuditLog.Logout(r.Context(), r, id.UserID)
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}

	errorsfeature.JSON(w, http.StatusOK, navigation.Describe(session.Unauthenticated()))
}
