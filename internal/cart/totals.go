package cart

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
)

// Line is one product in the cart. A cart never holds two lines for the same product.
type Line struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is the priced view of a Line.
type LineTotal struct {
	Line
	BundleCount   int             `json:"bundle_count"`
	BundleApplied bool            `json:"bundle_applied"`
	Total         decimal.Decimal `json:"total"`
}

// Totals is derived from the lines on every read and never stored on its own.
type Totals struct {
	Lines           []LineTotal     `json:"lines"`
	ItemCount       int             `json:"item_count"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Tax             decimal.Decimal `json:"tax"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Total           decimal.Decimal `json:"total"`
}

// PriceLine applies the bundle rule: floor(q/N) bundles at P plus (q mod N) units at the unit price.
func PriceLine(line Line) LineTotal {
	out := LineTotal{Line: line}
	q := int64(line.Quantity)
	unit := line.Product.Price
	bundle := line.Product.Bundle
	if bundle != nil && bundle.Quantity >= 1 && line.Quantity >= bundle.Quantity {
		n := int64(bundle.Quantity)
		out.BundleCount = int(q / n)
		out.BundleApplied = out.BundleCount > 0
		out.Total = bundle.Price.Mul(decimal.NewFromInt(q / n)).Add(unit.Mul(decimal.NewFromInt(q % n)))
		return out
	}
	out.Total = unit.Mul(decimal.NewFromInt(q))
	return out
}

// ClampPercent bounds a discount percentage to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	switch {
	case p.IsNegative():
		return decimal.Zero
	case p.GreaterThan(hundred):
		return hundred
	default:
		return p
	}
}

// ComputeTotals is pure. A negative tax rate is treated as zero and the discount
// percentage is clamped to [0, 100] so the total cannot go negative.
func ComputeTotals(lines []Line, taxRate, discountPercent decimal.Decimal) Totals {
	if taxRate.IsNegative() {
		taxRate = decimal.Zero
	}
	discountPercent = ClampPercent(discountPercent)

	totals := Totals{
		Lines:           make([]LineTotal, 0, len(lines)),
		Subtotal:        decimal.Zero,
		TaxRate:         taxRate,
		DiscountPercent: discountPercent,
	}
	for _, line := range lines {
		priced := PriceLine(line)
		totals.Lines = append(totals.Lines, priced)
		totals.ItemCount += line.Quantity
		totals.Subtotal = totals.Subtotal.Add(priced.Total)
	}
	totals.Tax = totals.Subtotal.Mul(taxRate)
	totals.DiscountAmount = totals.Subtotal.Mul(discountPercent).Div(hundred)
	totals.Total = totals.Subtotal.Add(totals.Tax).Sub(totals.DiscountAmount)
	return totals
}
