package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Key         string          `json:"key,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
}

// PriceFromCents converts a stored minor-unit amount to a price.
func PriceFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// PriceCents rounds a price to minor units.
func PriceCents(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}
