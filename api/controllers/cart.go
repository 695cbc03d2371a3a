package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marco-pos/api/responses"
	"github.com/angelmondragon/marco-pos/api/validators"
	"github.com/angelmondragon/marco-pos/internal/cart"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

// CartDeps groups what the cart handlers act on.
type CartDeps struct {
	Cart    *cart.Cart
	Catalog catalogReader
	TaxRate decimal.Decimal
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type discountRequest struct {
	Percent *decimal.Decimal `json:"percent" validate:"required"`
}

func (d CartDeps) totals() cartResponse {
	return newCartResponse(d.Cart.Totals(d.TaxRate))
}

func CartFetch(deps CartDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cart == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}
		responses.WriteSuccess(w, deps.totals())
	}
}

// CartAddItem adds one unit of a catalogue product, capped at its stock.
func CartAddItem(deps CartDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cart == nil || deps.Catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := deps.Catalog.Get(strings.TrimSpace(req.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := deps.Cart.AddItem(product); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deps.totals())
	}
}

func CartChangeQuantity(deps CartDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cart == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		var req changeQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := deps.Cart.ChangeQuantity(chi.URLParam(r, "productId"), req.Delta); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deps.totals())
	}
}

func CartRemoveItem(deps CartDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cart == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}
		deps.Cart.RemoveItem(chi.URLParam(r, "productId"))
		responses.WriteSuccess(w, deps.totals())
	}
}

// CartSetDiscount stores the session discount; out-of-range values are clamped.
func CartSetDiscount(deps CartDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cart == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		var req discountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deps.Cart.SetDiscountPercent(*req.Percent)
		responses.WriteSuccess(w, deps.totals())
	}
}

func CartClear(deps CartDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cart == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}
		deps.Cart.Clear()
		responses.WriteSuccess(w, deps.totals())
	}
}
