package transactions

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marco-pos/internal/cart"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
)

const centPlaces = 2

// BuildParams carries everything besides the cart totals that ends up on a payload.
type BuildParams struct {
	Totals        cart.Totals
	CashierEmail  string
	TerminalID    string
	Location      string
	PaymentMethod enums.PaymentMethod
	Now           time.Time
	// ID is generated when zero.
	ID uuid.UUID
}

// Build snapshots cart totals into a validated payload with status recorded. Line
// amounts are rounded to cents and everything else is recomputed from them so the
// stored figures always add up.
func Build(params BuildParams) (Payload, error) {
	if len(params.Totals.Lines) == 0 {
		return Payload{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	id := params.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	items := make([]Item, 0, len(params.Totals.Lines))
	subtotal := decimal.Zero
	for _, line := range params.Totals.Lines {
		lineTotal := line.Total.Round(centPlaces)
		items = append(items, Item{
			SKU:           line.Product.ID,
			Name:          line.Product.Name,
			Quantity:      line.Quantity,
			UnitPrice:     line.Product.Price.Round(centPlaces),
			LineTotal:     lineTotal,
			BundleApplied: line.BundleApplied,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	// Tax and discount are taken from the rounded subtotal; sub-cent line prices would
	// otherwise let the rounded discount exceed it.
	percent := cart.ClampPercent(params.Totals.DiscountPercent)
	rate := params.Totals.TaxRate
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	tax := subtotal.Mul(rate).Round(centPlaces)
	discount := subtotal.Mul(percent).Div(decimal.NewFromInt(100)).Round(centPlaces)

	payload := Payload{
		ID:              id,
		Items:           items,
		Subtotal:        subtotal,
		Tax:             tax,
		DiscountPercent: percent,
		DiscountAmount:  discount,
		Total:           subtotal.Add(tax).Sub(discount),
		Status:          enums.TransactionStatusRecorded,
		CreatedAt:       now.UTC(),
		CashierEmail:    strings.TrimSpace(params.CashierEmail),
		TerminalID:      strings.TrimSpace(params.TerminalID),
		Location:        strings.TrimSpace(params.Location),
		PaymentMethod:   params.PaymentMethod,
	}
	if err := payload.Validate(); err != nil {
		return Payload{}, err
	}
	return payload, nil
}
