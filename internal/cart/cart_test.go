package cart

import (
	"sync"
	"testing"

	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func hoops() Product {
	return Product{ID: "SKU-001", Name: "Gold Wire Hoops", Price: dec("6"), Stock: 42, Category: "Earrings", Bundle: &BundleRule{Quantity: 3, Price: dec("15")}}
}

func TestPriceLineBundleMath(t *testing.T) {
	t.Parallel()

	p := hoops()
	for q := 1; q <= 20; q++ {
		got := PriceLine(Line{Product: p, Quantity: q})
		want := dec("15").Mul(decimal.NewFromInt(int64(q / 3))).Add(dec("6").Mul(decimal.NewFromInt(int64(q % 3))))
		if !got.Total.Equal(want) {
			t.Fatalf("q=%d: expected %s, got %s", q, want, got.Total)
		}
		if got.BundleApplied != (q >= 3) {
			t.Fatalf("q=%d: unexpected bundleApplied=%v", q, got.BundleApplied)
		}
	}

	seven := PriceLine(Line{Product: p, Quantity: 7})
	if !seven.Total.Equal(dec("36")) || seven.BundleCount != 2 {
		t.Fatalf("expected 2 bundles totalling 36, got %d and %s", seven.BundleCount, seven.Total)
	}
}

func TestPriceLineWithoutBundle(t *testing.T) {
	t.Parallel()

	p := Product{ID: "SKU-003", Name: "Bread", Price: dec("5"), Stock: 65}
	got := PriceLine(Line{Product: p, Quantity: 4})
	if !got.Total.Equal(dec("20")) || got.BundleApplied {
		t.Fatalf("unexpected line %+v", got)
	}
}

func TestComputeTotalsFormula(t *testing.T) {
	t.Parallel()

	lines := []Line{{Product: Product{ID: "x", Name: "x", Price: dec("25"), Stock: 10}, Quantity: 4}}
	totals := ComputeTotals(lines, dec("0.10"), dec("10"))

	if !totals.Subtotal.Equal(dec("100")) {
		t.Fatalf("expected subtotal 100, got %s", totals.Subtotal)
	}
	if !totals.Tax.Equal(dec("10")) || !totals.DiscountAmount.Equal(dec("10")) {
		t.Fatalf("expected tax 10 and discount 10, got %s and %s", totals.Tax, totals.DiscountAmount)
	}
	if !totals.Total.Equal(dec("100")) {
		t.Fatalf("expected total 100, got %s", totals.Total)
	}
	if totals.ItemCount != 4 {
		t.Fatalf("expected 4 items, got %d", totals.ItemCount)
	}
}

func TestComputeTotalsClampsInputs(t *testing.T) {
	t.Parallel()

	lines := []Line{{Product: Product{ID: "x", Name: "x", Price: dec("10"), Stock: 10}, Quantity: 1}}

	over := ComputeTotals(lines, dec("0.10"), dec("150"))
	if !over.DiscountPercent.Equal(dec("100")) || !over.Total.Equal(dec("1")) {
		t.Fatalf("expected discount clamped to 100 leaving tax only, got %s / %s", over.DiscountPercent, over.Total)
	}

	under := ComputeTotals(lines, dec("-0.5"), dec("-5"))
	if !under.Tax.IsZero() || !under.DiscountAmount.IsZero() || !under.Total.Equal(dec("10")) {
		t.Fatalf("expected negative inputs treated as zero, got %+v", under)
	}
}

func TestAddItemClampsAtStock(t *testing.T) {
	t.Parallel()

	c := New()
	p := Product{ID: "SKU-X", Name: "Limited", Price: dec("2"), Stock: 5}
	for i := 0; i < 7; i++ {
		if _, err := c.AddItem(p); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected a single line, got %d", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", lines[0].Quantity)
	}
}

func TestAddItemRejectsOutOfStockAndInvalid(t *testing.T) {
	t.Parallel()

	c := New()
	_, err := c.AddItem(Product{ID: "SKU-0", Name: "Gone", Price: dec("1"), Stock: 0})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	_, err = c.AddItem(Product{ID: "SKU-B", Name: "Bad bundle", Price: dec("2"), Stock: 3, Bundle: &BundleRule{Quantity: 2, Price: dec("4")}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for non-discount bundle, got %v", err)
	}
	if !c.IsEmpty() {
		t.Fatal("rejected products must not enter the cart")
	}
}

func TestChangeQuantityFloorsAtOne(t *testing.T) {
	t.Parallel()

	c := New()
	p := Product{ID: "SKU-Y", Name: "Y", Price: dec("3"), Stock: 4}
	if _, err := c.AddItem(p); err != nil {
		t.Fatalf("add: %v", err)
	}

	line, err := c.ChangeQuantity("SKU-Y", 10)
	if err != nil || line.Quantity != 4 {
		t.Fatalf("expected quantity capped at 4, got %d (%v)", line.Quantity, err)
	}
	line, err = c.ChangeQuantity("SKU-Y", -10)
	if err != nil || line.Quantity != 1 {
		t.Fatalf("expected quantity floored at 1, got %d (%v)", line.Quantity, err)
	}
	if len(c.Lines()) != 1 {
		t.Fatal("decrement must not remove the line")
	}

	if _, err := c.ChangeQuantity("missing", 1); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveItemUnconditional(t *testing.T) {
	t.Parallel()

	c := New()
	if _, err := c.AddItem(hoops()); err != nil {
		t.Fatalf("add: %v", err)
	}
	c.RemoveItem("missing")
	c.RemoveItem("SKU-001")
	c.RemoveItem("SKU-001")
	if !c.IsEmpty() {
		t.Fatal("expected empty cart")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	c := New()
	c.Clear()
	c.Clear()

	totals := c.Totals(dec("0.10"))
	for name, v := range map[string]decimal.Decimal{
		"subtotal": totals.Subtotal,
		"tax":      totals.Tax,
		"discount": totals.DiscountAmount,
		"total":    totals.Total,
	} {
		if !v.IsZero() {
			t.Fatalf("expected zero %s, got %s", name, v)
		}
	}

	if _, err := c.AddItem(hoops()); err != nil {
		t.Fatalf("add: %v", err)
	}
	c.SetDiscountPercent(dec("15"))
	c.Clear()
	if !c.IsEmpty() || !c.DiscountPercent().IsZero() {
		t.Fatal("clear must drop lines and discount")
	}
}

func TestClearIfUnchanged(t *testing.T) {
	t.Parallel()

	c := New()
	if _, err := c.AddItem(hoops()); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap := c.Snapshot()
	if _, err := c.AddItem(hoops()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if c.ClearIfUnchanged(snap.Version) {
		t.Fatal("cart changed after the snapshot; it must not be cleared")
	}
	if !c.ClearIfUnchanged(c.Snapshot().Version) {
		t.Fatal("expected clear with a current version")
	}
	if !c.IsEmpty() {
		t.Fatal("expected empty cart")
	}
}

func TestSetDiscountPercentClamps(t *testing.T) {
	t.Parallel()

	c := New()
	if got := c.SetDiscountPercent(dec("120")); !got.Equal(dec("100")) {
		t.Fatalf("expected 100, got %s", got)
	}
	if got := c.SetDiscountPercent(dec("-1")); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
}

func TestCartConcurrentAdds(t *testing.T) {
	t.Parallel()

	c := New()
	p := Product{ID: "SKU-C", Name: "C", Price: dec("1"), Stock: 50}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.AddItem(p)
		}()
	}
	wg.Wait()
	if got := c.Lines()[0].Quantity; got != 50 {
		t.Fatalf("expected quantity capped at 50, got %d", got)
	}
}
