// Package cartapi is the JSON contract between cart clients and the cart API.
package cartapi

import (
	"strings"

	"cartsync/internal/domain"

	"github.com/shopspring/decimal"
)

// Route paths relative to the API base address.
const (
	PathCart      = "/cart"
	PathCartItems = "/cart/items"
	PathCartSync  = "/cart/sync"
	UploadsPath   = "/uploads/"
)

type ProductRef struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
}

type Item struct {
	Product  ProductRef `json:"product"`
	Quantity int        `json:"quantity"`
}

type CartResponse struct {
	Items []Item `json:"items"`
}

type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type SyncLine struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"gte=1"`
}

type SyncRequest struct {
	Items []SyncLine `json:"items" binding:"dive"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ToCart normalizes a server payload into a cart, resolving relative image
// refs against baseURL.
func (r CartResponse) ToCart(baseURL string) domain.Cart {
	lines := make([]domain.CartLine, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Product.ID == "" {
			continue
		}
		lines = append(lines, domain.CartLine{
			ProductID:   item.Product.ID,
			Name:        item.Product.Name,
			UnitPrice:   item.Product.Price,
			Description: item.Product.Description,
			ImageRef:    ResolveImage(baseURL, item.Product.Image),
			Quantity:    item.Quantity,
		})
	}
	return domain.Cart{Lines: lines}.Normalize()
}

// FromCart is the inverse used by the server.
func FromCart(cart domain.Cart) CartResponse {
	items := make([]Item, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, Item{
			Product: ProductRef{
				ID:          line.ProductID,
				Name:        line.Name,
				Price:       line.UnitPrice,
				Description: line.Description,
				Image:       line.ImageRef,
			},
			Quantity: line.Quantity,
		})
	}
	return CartResponse{Items: items}
}

// SyncLines projects a cart onto the merge request body.
func SyncLines(cart domain.Cart) SyncRequest {
	items := make([]SyncLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, SyncLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return SyncRequest{Items: items}
}

// ResolveImage keeps absolute URLs and places bare file names under /uploads/.
func ResolveImage(baseURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || baseURL == "" {
		return ref
	}
	return strings.TrimRight(baseURL, "/") + UploadsPath + strings.TrimLeft(ref, "/")
}
