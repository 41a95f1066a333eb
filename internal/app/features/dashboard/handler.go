// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	errorsfeature "github.com/dalemusser/pharmausage/internal/app/features/errors"
	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	"github.com/dalemusser/pharmausage/internal/app/system/authz"
	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Views *usagequeries.Assembler
	Users authz.UserSource
	Log   *zap.Logger
}

func NewHandler(views *usagequeries.Assembler, users authz.UserSource, logger *zap.Logger) *Handler {
	return &Handler{
		Views: views,
		Users: users,
		Log:   logger,
	}
}

// ServeDashboard handles GET /dashboard by dispatching on the resolved role.
// A session without a resolved role (signed out, loading, unknown role) is
// answered with 401 and routed to login.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	s := session.FromRequest(r)
	if !s.HasRole() {
		errorsfeature.Unauthorized(w, r)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard")
	defer cancel()

	var (
		view any
		err  error
	)
	switch s.Role() {
	case models.RolePharmacy:
		view, err = h.Views.PharmacyHome(ctx, s.UserID())
	case models.RoleMarketing:
		view, err = h.Views.MarketingHome(ctx, s.UserID())
	case models.RoleCompany:
		view, err = h.Views.CompanyHome(ctx)
	default:
		h.Log.Warn("dashboard: role has no home view", zap.String("role", s.Role()))
		errorsfeature.Unauthorized(w, r)
		return
	}
	if err != nil {
		errorsfeature.Write(w, h.Log, err)
		return
	}

	errorsfeature.JSON(w, http.StatusOK, view)
}
