package controllers

import (
	"net/http"

	"github.com/sellgrid/marketplace-backend/api/middleware"
	"github.com/sellgrid/marketplace-backend/api/responses"
	"github.com/sellgrid/marketplace-backend/api/validators"
	analyticsvc "github.com/sellgrid/marketplace-backend/internal/analytics"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
)

// SellerAnalyticsSummary returns the authenticated seller's sales dashboard.
func SellerAnalyticsSummary(svc analyticsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		window, err := validators.ParseQueryInt(r, "window", 30, 1, 365)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), middleware.ProfileIDFromContext(r.Context()), window)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
