package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKV struct {
	values map[string]string
}

func newMockKV() *mockKV {
	return &mockKV{values: make(map[string]string)}
}

func (m *mockKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockKV) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.values[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

func TestRedisSlotNamespacesKeys(t *testing.T) {
	kv := newMockKV()
	slot := newRedisSlot(kv, "kiosk-1", time.Second)

	require.NoError(t, slot.Save(CartKey, "[]"))
	_, stored := kv.values["cartsync:slot:kiosk-1:cart"]
	assert.True(t, stored)

	v, ok, err := slot.Load(CartKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)
}

func TestRedisSlotMissingKeyIsNotAnError(t *testing.T) {
	slot := newRedisSlot(newMockKV(), "", 0)

	_, ok, err := slot.Load(IdentityKey)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, slot.Delete(IdentityKey))
}
