package catalog

import (
	"testing"

	"github.com/angelmondragon/marco-pos/internal/cart"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/shopspring/decimal"
)

func TestSeededCatalogue(t *testing.T) {
	t.Parallel()

	c := NewSeeded()
	all := c.List("")
	if len(all) != 10 {
		t.Fatalf("expected 10 products, got %d", len(all))
	}
	if all[0].ID != "SKU-001" || all[9].ID != "SKU-010" {
		t.Fatalf("expected catalogue order preserved, got %s..%s", all[0].ID, all[9].ID)
	}

	bundled := 0
	for _, p := range all {
		if p.Bundle != nil {
			bundled++
		}
	}
	if bundled != 3 {
		t.Fatalf("expected 3 bundle deals, got %d", bundled)
	}

	hair := c.List("Hair")
	if len(hair) != 2 {
		t.Fatalf("expected 2 hair products, got %d", len(hair))
	}
	if got := c.Categories(); len(got) != 7 || got[0] != "Anklets" {
		t.Fatalf("unexpected categories %v", got)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	c := NewSeeded()
	p, err := c.Get("SKU-005")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Bundle == nil || p.Bundle.Quantity != 4 {
		t.Fatalf("unexpected bundle %+v", p.Bundle)
	}

	_, err = c.Get("SKU-999")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewRejectsInvalidAndDuplicates(t *testing.T) {
	t.Parallel()

	good := cart.Product{ID: "A", Name: "A", Price: decimal.NewFromInt(1), Stock: 1}
	if _, err := New([]cart.Product{good, good}); err == nil {
		t.Fatal("expected duplicate id error")
	}
	bad := cart.Product{ID: "B", Name: "B", Price: decimal.NewFromInt(-1), Stock: 1}
	if _, err := New([]cart.Product{bad}); err == nil {
		t.Fatal("expected invalid product error")
	}
}
