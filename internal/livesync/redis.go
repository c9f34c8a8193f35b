package livesync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type pubsubClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisChannel rides on Redis Pub/Sub, one channel per identity.
// Reconnects are handled by go-redis.
type RedisChannel struct {
	client pubsubClient
	prefix string
	logger zerolog.Logger
}

func NewRedisChannel(client *redis.Client, prefix string, logger zerolog.Logger) *RedisChannel {
	return newRedisChannel(client, prefix, logger)
}

func newRedisChannel(client pubsubClient, prefix string, logger zerolog.Logger) *RedisChannel {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisChannel{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("component", "livesync.redis").Logger(),
	}
}

func (c *RedisChannel) Publish(ctx context.Context, event Event) error {
	if event.IdentityID == "" {
		return errors.New("livesync: identity id is required")
	}
	payload, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := c.client.Publish(ctx, RoomName(c.prefix, event.IdentityID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe joins the identity room and waits for the server confirmation.
func (c *RedisChannel) Subscribe(ctx context.Context, identityID string, handler Handler) (Subscription, error) {
	if identityID == "" {
		return nil, errors.New("livesync: identity id is required")
	}
	if handler == nil {
		return nil, errors.New("livesync: handler is required")
	}
	ps := c.client.Subscribe(ctx, RoomName(c.prefix, identityID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", identityID, err)
	}
	go c.pump(ps.Channel(), identityID, handler)
	return &redisSub{ps: ps}, nil
}

func (c *RedisChannel) pump(messages <-chan *redis.Message, identityID string, handler Handler) {
	for msg := range messages {
		event, err := decodeEvent([]byte(msg.Payload))
		if err != nil {
			c.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping message")
			continue
		}
		if event.IdentityID != identityID {
			continue
		}
		handler(event)
	}
}

type redisSub struct {
	ps   *redis.PubSub
	once sync.Once
	err  error
}

// Close unsubscribes. The delivery goroutine exits once go-redis closes the
// message channel.
func (s *redisSub) Close() error {
	s.once.Do(func() { s.err = s.ps.Close() })
	return s.err
}
