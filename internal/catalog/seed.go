package catalog

import (
	"github.com/angelmondragon/marco-pos/internal/cart"
	"github.com/shopspring/decimal"
)

func SeedProducts() []cart.Product {
	return []cart.Product{
		{ID: "SKU-001", Name: "Gold Wire Hoops", Price: decimal.NewFromInt(6), Stock: 42, Category: "Earrings", Bundle: &cart.BundleRule{Quantity: 3, Price: decimal.NewFromInt(15)}},
		{ID: "SKU-002", Name: "Pearl Layered Necklace", Price: decimal.NewFromInt(10), Stock: 28, Category: "Necklaces", Bundle: &cart.BundleRule{Quantity: 2, Price: decimal.NewFromInt(18)}},
		{ID: "SKU-003", Name: "Rose Quartz Stack", Price: decimal.NewFromInt(5), Stock: 65, Category: "Bracelets"},
		{ID: "SKU-004", Name: "Shell Anklet", Price: decimal.NewFromInt(4), Stock: 51, Category: "Anklets"},
		{ID: "SKU-005", Name: "Velvet Scrunchie", Price: decimal.NewFromInt(3), Stock: 103, Category: "Hair", Bundle: &cart.BundleRule{Quantity: 4, Price: decimal.NewFromInt(10)}},
		{ID: "SKU-006", Name: "Kina Coin Charm", Price: decimal.NewFromInt(7), Stock: 37, Category: "Charms"},
		{ID: "SKU-007", Name: "Coconut Shell Earrings", Price: decimal.NewFromInt(5), Stock: 44, Category: "Earrings"},
		{ID: "SKU-008", Name: "Woven Friendship Band", Price: decimal.NewFromInt(4), Stock: 89, Category: "Bracelets"},
		{ID: "SKU-009", Name: "Minimalist Ring Set", Price: decimal.NewFromInt(6), Stock: 56, Category: "Rings"},
		{ID: "SKU-010", Name: "Sunrise Hair Pins", Price: decimal.NewFromInt(3), Stock: 75, Category: "Hair"},
	}
}
