// internal/app/features/dashboard/detail.go
package dashboard

import (
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/pharmausage/internal/app/features/errors"
	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	"github.com/dalemusser/pharmausage/internal/app/system/apperr"
	"github.com/dalemusser/pharmausage/internal/app/system/authz"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServePharmacyDetail handles GET /pharmacies/{id}.
func (h *Handler) ServePharmacyDetail(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Write(w, h.Log, apperr.NotFound("pharmacy detail", "Pharmacy"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "pharmacy detail")
	defer cancel()

	ok, err := authz.CanViewPharmacy(ctx, r, id, h.Users)
	if err != nil {
		errorsfeature.Write(w, h.Log, apperr.FetchFailure("pharmacy detail", err))
		return
	}
	if !ok {
		h.Log.Info("pharmacy detail: out of scope", zap.String("pharmacy_id", id.Hex()))
		errorsfeature.Forbidden(w, r)
		return
	}

	view, err := h.Views.PharmacyDetail(ctx, id)
	if err != nil {
		errorsfeature.Write(w, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, view)
}

// ServeMarketingDetail handles GET /marketing/{id}.
func (h *Handler) ServeMarketingDetail(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Write(w, h.Log, apperr.NotFound("marketing detail", "Marketing user"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "marketing detail")
	defer cancel()

	ok, err := authz.CanViewMarketing(ctx, r, id, h.Users)
	switch {
	case errors.Is(err, usagequeries.ErrNotFound):
		errorsfeature.Write(w, h.Log, apperr.NotFound("marketing detail", "Marketing user"))
		return
	case err != nil:
		errorsfeature.Write(w, h.Log, apperr.FetchFailure("marketing detail", err))
		return
	case !ok:
		h.Log.Info("marketing detail: out of scope", zap.String("marketing_id", id.Hex()))
		errorsfeature.Forbidden(w, r)
		return
	}

	view, err := h.Views.MarketingDetail(ctx, id)
	if err != nil {
		errorsfeature.Write(w, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, view)
}
