// Package catalog serves the products a terminal can sell. Stock figures are display
// data; selling does not decrement them.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/angelmondragon/marco-pos/internal/cart"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
)

type Catalog struct {
	mu       sync.RWMutex
	products map[string]cart.Product
	order    []string
}

// New validates every product and rejects duplicate ids.
func New(products []cart.Product) (*Catalog, error) {
	c := &Catalog{products: make(map[string]cart.Product, len(products))}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("product %q: %w", p.ID, err)
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		c.products[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// NewSeeded returns the demo catalogue the terminal ships with.
func NewSeeded() *Catalog {
	c, err := New(SeedProducts())
	if err != nil {
		panic(fmt.Sprintf("seed catalogue invalid: %v", err))
	}
	return c
}

// List returns products in catalogue order, optionally filtered by category.
func (c *Catalog) List(category string) []cart.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]cart.Product, 0, len(c.order))
	for _, id := range c.order {
		p := c.products[id]
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *Catalog) Get(id string) (cart.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return cart.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": id})
	}
	return p, nil
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]struct{}{}
	var out []string
	for _, p := range c.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}
