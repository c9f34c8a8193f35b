package cartapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartResponseToCart(t *testing.T) {
	body := `{"items":[
		{"product":{"id":"a","name":"Mug","price":"12.50","image":"mug.png"},"quantity":2},
		{"product":{"id":"b","name":"Tee","price":19.99,"image":"https://cdn.example/tee.png"},"quantity":1},
		{"product":{"id":"","name":"ghost"},"quantity":1},
		{"product":{"id":"c","name":"Zero"},"quantity":0}
	]}`
	var resp CartResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	cart := resp.ToCart("https://api.example/")

	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "https://api.example/uploads/mug.png", cart.Lines[0].ImageRef)
	assert.Equal(t, "12.5", cart.Lines[0].UnitPrice.String())
	assert.Equal(t, "https://cdn.example/tee.png", cart.Lines[1].ImageRef)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, cart.Quantities())
}

func TestFromCartRoundTrip(t *testing.T) {
	var resp CartResponse
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"product":{"id":"a","name":"Mug","price":"3"},"quantity":4}]}`), &resp))
	cart := resp.ToCart("")

	out := FromCart(cart)

	require.Len(t, out.Items, 1)
	assert.Equal(t, 4, out.Items[0].Quantity)
	assert.Equal(t, SyncRequest{Items: []SyncLine{{ProductID: "a", Quantity: 4}}}, SyncLines(cart))
}

func TestResolveImage(t *testing.T) {
	assert.Equal(t, "", ResolveImage("https://x", " "))
	assert.Equal(t, "a.png", ResolveImage("", "a.png"))
	assert.Equal(t, "https://x/uploads/a.png", ResolveImage("https://x", "/a.png"))
}
