package cart

import (
	"context"

	"cartsync/internal/domain"
)

// MergeLine is a client line offered to Merge.
type MergeLine struct {
	ProductID string
	Quantity  int
}

// Repository stores one cart per identity.
type Repository interface {
	// Get returns the identity's lines; an identity without a cart has an empty one.
	Get(ctx context.Context, identityID string) (domain.Cart, error)
	AddLine(ctx context.Context, identityID string, product domain.Product, quantity int) error
	// SetQuantity returns domain.ErrNotFound when the line does not exist.
	SetQuantity(ctx context.Context, identityID, productID string, quantity int) error
	RemoveLine(ctx context.Context, identityID, productID string) error
	Clear(ctx context.Context, identityID string) error
	// Merge inserts lines for products the cart lacks. Existing lines keep
	// their quantity and unknown products are skipped.
	Merge(ctx context.Context, identityID string, lines []MergeLine) error
}
