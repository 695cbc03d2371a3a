package controllers

import (
	"net/http"

	"github.com/angelmondragon/marco-pos/api/responses"
	"github.com/angelmondragon/marco-pos/api/validators"
	"github.com/angelmondragon/marco-pos/internal/cart"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

type catalogReader interface {
	List(category string) []cart.Product
	Get(id string) (cart.Product, error)
	Categories() []string
}

// CatalogList returns the sellable products, optionally filtered by ?category=.
func CatalogList(catalog catalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		category := validators.SanitizeString(r.URL.Query().Get("category"), 64)
		products := catalog.List(category)

		out := catalogResponse{
			Products:   make([]productResponse, 0, len(products)),
			Categories: catalog.Categories(),
		}
		for _, p := range products {
			out.Products = append(out.Products, newProductResponse(p))
		}
		responses.WriteSuccess(w, out)
	}
}
