// Package cart holds the active sale: lines, the session discount and the derived totals.
package cart

import (
	"sync"

	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/shopspring/decimal"
)

// Cart is safe for concurrent use. Quantities stay within [1, stock]; decrementing
// never removes a line, only RemoveItem does.
type Cart struct {
	mu              sync.Mutex
	lines           []Line
	discountPercent decimal.Decimal
	version         uint64
}

// Snapshot is a consistent copy of the cart taken under the lock.
type Snapshot struct {
	Lines           []Line
	DiscountPercent decimal.Decimal
	Version         uint64
}

func New() *Cart {
	return &Cart{discountPercent: decimal.Zero}
}

// AddItem increments the product's quantity by one, silently capped at stock, or adds
// a new line with quantity 1.
func (c *Cart) AddItem(product Product) (Line, error) {
	if err := product.Validate(); err != nil {
		return Line{}, err
	}
	if product.Stock < 1 {
		return Line{}, pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock").
			WithDetails(map[string]any{"product_id": product.ID})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(product.ID); idx >= 0 {
		line := &c.lines[idx]
		line.Product = product
		line.Quantity = clamp(line.Quantity+1, 1, product.Stock)
		c.version++
		return *line, nil
	}
	line := Line{Product: product, Quantity: 1}
	c.lines = append(c.lines, line)
	c.version++
	return line, nil
}

// ChangeQuantity sets the quantity to clamp(current+delta, 1, stock).
func (c *Cart) ChangeQuantity(productID string, delta int) (Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(productID)
	if idx < 0 {
		return Line{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart").
			WithDetails(map[string]any{"product_id": productID})
	}
	line := &c.lines[idx]
	line.Quantity = clamp(line.Quantity+delta, 1, line.Product.Stock)
	c.version++
	return *line, nil
}

// RemoveItem drops the line for productID. Removing an absent product is a no-op.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(productID); idx >= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		c.version++
	}
}

// SetDiscountPercent stores the session discount, clamped to [0, 100], and returns the stored value.
func (c *Cart) SetDiscountPercent(percent decimal.Decimal) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discountPercent = ClampPercent(percent)
	c.version++
	return c.discountPercent
}

func (c *Cart) DiscountPercent() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discountPercent
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLines()
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *Cart) Totals(taxRate decimal.Decimal) Totals {
	snap := c.Snapshot()
	return ComputeTotals(snap.Lines, taxRate, snap.DiscountPercent)
}

func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Lines:           c.copyLines(),
		DiscountPercent: c.discountPercent,
		Version:         c.version,
	}
}

// Clear empties the cart and resets the discount. Clearing an empty cart is a no-op.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// ClearIfUnchanged clears the cart only if nothing mutated it since the snapshot
// with the given version was taken. It reports whether the cart was cleared.
func (c *Cart) ClearIfUnchanged(version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		return false
	}
	c.reset()
	return true
}

func (c *Cart) reset() {
	if len(c.lines) == 0 && c.discountPercent.IsZero() {
		return
	}
	c.lines = nil
	c.discountPercent = decimal.Zero
	c.version++
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) copyLines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
