package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"cartsync/internal/config"
	"cartsync/internal/domain"
	"cartsync/internal/livesync"
	"cartsync/internal/localstore"
	"cartsync/internal/logging"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCart(t *testing.T) {
	var buf bytes.Buffer
	renderCart(&buf, domain.Cart{})
	assert.Equal(t, "cart is empty\n", buf.String())

	buf.Reset()
	renderCart(&buf, domain.Cart{Lines: []domain.CartLine{
		{ProductID: "p1", Name: "Mug", UnitPrice: decimal.RequireFromString("12.5"), Quantity: 2},
		{ProductID: "p2", Name: "Tote", UnitPrice: decimal.RequireFromString("3"), Quantity: 1},
	}})
	out := buf.String()
	assert.Contains(t, out, "PRODUCT")
	assert.Contains(t, out, "25.00")
	assert.Contains(t, out, "lines: 2  items: 3  total: 28.00")
}

func TestBuildSlot(t *testing.T) {
	slot, err := buildSlot(config.ClientConfig{SlotBackend: config.SlotMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &localstore.MemorySlot{}, slot)

	slot, err = buildSlot(config.ClientConfig{SlotBackend: config.SlotFile, StateDir: t.TempDir(), Profile: "p"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &localstore.FileSlot{}, slot)

	_, err = buildSlot(config.ClientConfig{SlotBackend: config.SlotRedis}, nil)
	assert.Error(t, err)
}

func TestNewAppWithoutRedis(t *testing.T) {
	cfg := config.ClientConfig{
		APIBaseURL:  "http://127.0.0.1:1",
		SlotBackend: config.SlotMemory,
		CallTimeout: time.Second,
	}
	a, err := newApp(context.Background(), cfg, "", nil, logging.Discard())
	require.NoError(t, err)
	defer a.close()
	assert.Nil(t, a.channel)

	a.engine.Add(domain.Product{ID: "p1", Price: decimal.NewFromInt(1)})
	assert.Equal(t, map[string]int{"p1": 1}, a.engine.Cart().Quantities())
}

func TestNewAppFallsBackToMemoryHub(t *testing.T) {
	cfg := config.ClientConfig{
		APIBaseURL:  "http://127.0.0.1:1",
		SlotBackend: config.SlotMemory,
		CallTimeout: time.Second,
		LiveUpdates: true,
	}
	a, err := newApp(context.Background(), cfg, "", nil, logging.Discard())
	require.NoError(t, err)
	defer a.close()

	assert.IsType(t, &livesync.MemoryHub{}, a.channel)
}
