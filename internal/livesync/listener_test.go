package livesync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cartsync/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerRefreshesOnForeignUpdates(t *testing.T) {
	hub := NewMemoryHub()
	var refreshes atomic.Int32
	l := NewListener(hub, "me", func(context.Context) error {
		refreshes.Add(1)
		return nil
	}, logging.Discard())
	ctx := context.Background()

	require.NoError(t, l.Start(ctx, "u1"))

	require.NoError(t, hub.Publish(ctx, NewUpdated("u1", "other", time.Now())))
	require.NoError(t, hub.Publish(ctx, NewUpdated("u1", "me", time.Now())))
	require.NoError(t, hub.Publish(ctx, NewUpdated("u2", "other", time.Now())))
	require.NoError(t, hub.Publish(ctx, Event{Type: "deleted", IdentityID: "u1"}))

	assert.Equal(t, int32(1), refreshes.Load())
}

func TestListenerStartIsIdempotentAndSwitchesRooms(t *testing.T) {
	hub := NewMemoryHub()
	l := NewListener(hub, "me", func(context.Context) error { return nil }, logging.Discard())
	ctx := context.Background()

	require.NoError(t, l.Start(ctx, "u1"))
	require.NoError(t, l.Start(ctx, "u1"))
	assert.Equal(t, 1, hub.Subscribers("u1"))

	require.NoError(t, l.Start(ctx, "u2"))
	assert.Equal(t, 0, hub.Subscribers("u1"))
	assert.Equal(t, 1, hub.Subscribers("u2"))

	id, ok := l.Active()
	assert.True(t, ok)
	assert.Equal(t, "u2", id)

	l.Stop()
	l.Stop()
	assert.Equal(t, 0, hub.Subscribers("u2"))
	_, ok = l.Active()
	assert.False(t, ok)
}

func TestListenerStopsRefreshingAfterStop(t *testing.T) {
	hub := NewMemoryHub()
	var refreshes atomic.Int32
	l := NewListener(hub, "me", func(context.Context) error {
		refreshes.Add(1)
		return errors.New("offline")
	}, logging.Discard())
	ctx := context.Background()

	require.NoError(t, l.Start(ctx, "u1"))
	require.NoError(t, hub.Publish(ctx, NewUpdated("u1", "other", time.Now())))
	l.Stop()
	require.NoError(t, hub.Publish(ctx, NewUpdated("u1", "other", time.Now())))

	assert.Equal(t, int32(1), refreshes.Load())
}

func TestNilListenerIsInert(t *testing.T) {
	var l *Listener
	assert.NoError(t, l.Start(context.Background(), "u1"))
	l.Stop()
	_, ok := l.Active()
	assert.False(t, ok)
}
