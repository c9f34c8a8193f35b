package domain

import (
	"github.com/shopspring/decimal"
)

// CartLine is one product's presence in a cart. The product fields are a
// display snapshot; the server owns the authoritative copy.
type CartLine struct {
	ProductID   string          `json:"productId" validate:"required"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Description string          `json:"description,omitempty"`
	ImageRef    string          `json:"imageRef,omitempty"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an unordered-in-meaning list of lines, unique by ProductID.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Find returns the line for productID.
func (c Cart) Find(productID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// ItemCount is the number of distinct lines, as shown on the header badge.
func (c Cart) ItemCount() int {
	return len(c.Lines)
}

// TotalQuantity sums quantities across lines.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Quantities maps product id to quantity.
func (c Cart) Quantities() map[string]int {
	out := make(map[string]int, len(c.Lines))
	for _, line := range c.Lines {
		out[line.ProductID] = line.Quantity
	}
	return out
}

// Clone returns a deep copy so callers cannot alias store internals.
func (c Cart) Clone() Cart {
	if c.Lines == nil {
		return Cart{Lines: []CartLine{}}
	}
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

// Normalize drops lines without a product id or with quantity < 1 and
// collapses duplicate ids into the first occurrence, summing quantities.
func (c Cart) Normalize() Cart {
	lines := make([]CartLine, 0, len(c.Lines))
	index := make(map[string]int, len(c.Lines))
	for _, line := range c.Lines {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			lines[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(lines)
		lines = append(lines, line)
	}
	return Cart{Lines: lines}
}

// LineFromProduct builds a new line with the product snapshot.
func LineFromProduct(p Product, quantity int) CartLine {
	return CartLine{
		ProductID:   p.ID,
		Name:        p.Name,
		UnitPrice:   p.Price,
		Description: p.Description,
		ImageRef:    p.Image,
		Quantity:    quantity,
	}
}
