package livesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"cartsync/internal/logging"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	channel string
	message any
}

type mockPubSub struct {
	published []publishCall
	err       error
}

func (m *mockPubSub) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.published = append(m.published, publishCall{channel: channel, message: message})
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func (m *mockPubSub) Subscribe(context.Context, ...string) *redis.PubSub {
	panic("not used")
}

func TestRedisChannelPublish(t *testing.T) {
	mock := &mockPubSub{}
	ch := newRedisChannel(mock, "", logging.Discard())

	require.NoError(t, ch.Publish(context.Background(), NewUpdated("u1", "c1", time.Now())))
	require.Len(t, mock.published, 1)
	assert.Equal(t, "cartsync:cart:updated:u1", mock.published[0].channel)

	event, err := decodeEvent(mock.published[0].message.([]byte))
	require.NoError(t, err)
	assert.Equal(t, "c1", event.Origin)
}

func TestRedisChannelPublishErrors(t *testing.T) {
	ch := newRedisChannel(&mockPubSub{err: errors.New("down")}, "p", logging.Discard())
	assert.Error(t, ch.Publish(context.Background(), NewUpdated("u1", "c1", time.Now())))
	assert.Error(t, ch.Publish(context.Background(), Event{Type: EventUpdated}))
}

func TestRedisChannelPumpFiltersMessages(t *testing.T) {
	ch := newRedisChannel(&mockPubSub{}, "", logging.Discard())
	good, err := encodeEvent(NewUpdated("u1", "c2", time.Now()))
	require.NoError(t, err)
	other, err := encodeEvent(NewUpdated("u2", "c2", time.Now()))
	require.NoError(t, err)

	messages := make(chan *redis.Message, 3)
	messages <- &redis.Message{Channel: "x", Payload: "garbage"}
	messages <- &redis.Message{Channel: "x", Payload: string(other)}
	messages <- &redis.Message{Channel: "x", Payload: string(good)}
	close(messages)

	var got []Event
	ch.pump(messages, "u1", func(e Event) { got = append(got, e) })

	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].IdentityID)
}
