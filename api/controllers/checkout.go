package controllers

import (
	"net/http"

	"github.com/sellgrid/marketplace-backend/api/middleware"
	"github.com/sellgrid/marketplace-backend/api/responses"
	"github.com/sellgrid/marketplace-backend/api/validators"
	checkoutsvc "github.com/sellgrid/marketplace-backend/internal/checkout"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
)

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	PaymentMethod   string `json:"payment_method" validate:"required"`
}

// Checkout converts the buyer's cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Execute(r.Context(), middleware.ProfileIDFromContext(r.Context()), checkoutsvc.CheckoutInput{
			ShippingAddress: body.ShippingAddress,
			PaymentMethod:   method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
