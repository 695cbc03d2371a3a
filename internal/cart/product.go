package cart

import (
	"strings"

	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/shopspring/decimal"
)

// BundleRule bills every Quantity units sold together at Price instead of Quantity x unit price.
type BundleRule struct {
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Product is a catalogue entry. Products are treated as immutable for the life of a session.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
	Bundle   *BundleRule     `json:"bundle,omitempty"`
}

// Validate checks the catalogue invariants, including that a bundle is actually a discount.
func (p Product) Validate() error {
	details := map[string]string{}
	if strings.TrimSpace(p.ID) == "" {
		details["id"] = "is required"
	}
	if strings.TrimSpace(p.Name) == "" {
		details["name"] = "is required"
	}
	if p.Price.IsNegative() {
		details["price"] = "must not be negative"
	}
	if p.Stock < 0 {
		details["stock"] = "must not be negative"
	}
	if p.Bundle != nil {
		switch {
		case p.Bundle.Quantity < 1:
			details["bundle.quantity"] = "must be at least 1"
		case p.Bundle.Price.IsNegative():
			details["bundle.price"] = "must not be negative"
		case !p.Bundle.Price.LessThan(p.Price.Mul(decimal.NewFromInt(int64(p.Bundle.Quantity)))):
			details["bundle.price"] = "must be below the regular price of the bundle"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(details)
	}
	return nil
}
