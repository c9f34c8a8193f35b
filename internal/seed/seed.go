// Package seed loads a small demo catalog for manual testing.
package seed

import (
	"context"
	"fmt"

	"cartsync/internal/domain"

	"github.com/shopspring/decimal"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// DemoProducts is the catalog written by Apply.
func DemoProducts() []domain.Product {
	return []domain.Product{
		{
			Key:         "demo-shirt",
			Name:        "Demo T-Shirt",
			Description: "Soft cotton tee for demo purposes",
			Price:       decimal.RequireFromString("19.99"),
			Image:       "demo-shirt.jpg",
		},
		{
			Key:         "demo-mug",
			Name:        "Demo Mug",
			Description: "Ceramic mug with demo logo",
			Price:       decimal.RequireFromString("12.99"),
			Image:       "demo-mug.jpg",
		},
		{
			Key:         "demo-tote",
			Name:        "Demo Tote",
			Description: "Canvas tote bag",
			Price:       decimal.RequireFromString("8.50"),
			Image:       "https://images.example.com/demo-tote.jpg",
		},
	}
}

// Apply upserts the demo catalog. It is idempotent since products are keyed.
func Apply(ctx context.Context, repo ProductWriter) (int, error) {
	n := 0
	for _, p := range DemoProducts() {
		if _, err := repo.Upsert(ctx, p); err != nil {
			return n, fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
		n++
	}
	return n, nil
}
