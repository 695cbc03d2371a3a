package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/marco-pos/api/middleware"
	"github.com/angelmondragon/marco-pos/api/responses"
	"github.com/angelmondragon/marco-pos/api/validators"
	"github.com/angelmondragon/marco-pos/internal/checkout"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

type checkoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (checkout.Result, error)
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card mobile_money"`
}

// Checkout finalizes the cart for the signed-in cashier. A queued sale still answers
// 201: it is durable on the terminal and will sync later.
func Checkout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Checkout(r.Context(), checkout.Request{
			Cashier:       middleware.CashierFromContext(r.Context()),
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}
