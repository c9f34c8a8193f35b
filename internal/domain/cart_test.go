package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartNormalize(t *testing.T) {
	cart := Cart{Lines: []CartLine{
		{ProductID: "a", Quantity: 1},
		{ProductID: "", Quantity: 3},
		{ProductID: "b", Quantity: 0},
		{ProductID: "a", Quantity: 2},
		{ProductID: "c", Quantity: 1},
	}}

	got := cart.Normalize()

	require.Len(t, got.Lines, 2)
	assert.Equal(t, "a", got.Lines[0].ProductID)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.Equal(t, "c", got.Lines[1].ProductID)
}

func TestCartTotals(t *testing.T) {
	cart := Cart{Lines: []CartLine{
		{ProductID: "a", UnitPrice: decimal.RequireFromString("10.50"), Quantity: 2},
		{ProductID: "b", UnitPrice: decimal.RequireFromString("0.99"), Quantity: 1},
	}}

	assert.True(t, cart.Total().Equal(decimal.RequireFromString("21.99")), "total %s", cart.Total())
	assert.Equal(t, 2, cart.ItemCount())
	assert.Equal(t, 3, cart.TotalQuantity())
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, cart.Quantities())
}

func TestCartCloneDoesNotAlias(t *testing.T) {
	cart := Cart{Lines: []CartLine{{ProductID: "a", Quantity: 1}}}
	clone := cart.Clone()
	clone.Lines[0].Quantity = 5

	assert.Equal(t, 1, cart.Lines[0].Quantity)
	assert.NotNil(t, Cart{}.Clone().Lines)
}

func TestIdentityHasToken(t *testing.T) {
	var guest *Identity
	assert.False(t, guest.HasToken())
	assert.False(t, (&Identity{ID: "u1"}).HasToken())
	assert.False(t, (&Identity{ID: "u1", Token: "  "}).HasToken())
	assert.True(t, (&Identity{ID: "u1", Token: "t"}).HasToken())
}
