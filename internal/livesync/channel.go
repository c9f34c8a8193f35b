// Package livesync carries "cart changed" notifications between clients that
// share an identity, and drives refreshes when another client changes it.
package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventUpdated announces that an identity's server cart changed.
const EventUpdated = "updated"

// DefaultPrefix namespaces channel names.
const DefaultPrefix = "cartsync"

var ErrClosed = errors.New("livesync: channel closed")

type Event struct {
	Type       string    `json:"type"`
	IdentityID string    `json:"identityId"`
	Origin     string    `json:"origin,omitempty"`
	At         time.Time `json:"at"`
}

// Handler receives events for one identity room.
type Handler func(Event)

// Subscription is one joined room. Close leaves it.
type Subscription interface {
	Close() error
}

// Channel is a push transport keyed by identity.
type Channel interface {
	Subscribe(ctx context.Context, identityID string, handler Handler) (Subscription, error)
	Publish(ctx context.Context, event Event) error
}

// NewUpdated builds an updated event stamped with now.
func NewUpdated(identityID, origin string, now time.Time) Event {
	return Event{Type: EventUpdated, IdentityID: identityID, Origin: origin, At: now.UTC()}
}

// RoomName is the channel name for an identity's updates.
func RoomName(prefix, identityID string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s:cart:updated:%s", prefix, identityID)
}

func encodeEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, errors.New("decode event: missing type")
	}
	return e, nil
}
