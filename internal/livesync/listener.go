package livesync

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Listener keeps one identity room joined for the life of a session and calls
// refresh when another client reports a change.
type Listener struct {
	channel  Channel
	clientID string
	refresh  func(context.Context) error
	logger   zerolog.Logger

	mu         sync.Mutex
	sub        Subscription
	identityID string
	cancel     context.CancelFunc
}

func NewListener(channel Channel, clientID string, refresh func(context.Context) error, logger zerolog.Logger) *Listener {
	return &Listener{
		channel:  channel,
		clientID: clientID,
		refresh:  refresh,
		logger:   logger.With().Str("component", "livesync.listener").Logger(),
	}
}

// Start joins identityID's room, leaving any previous one. Calling it again
// for the same identity is a no-op.
func (l *Listener) Start(ctx context.Context, identityID string) error {
	if l == nil || l.channel == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub != nil && l.identityID == identityID {
		return nil
	}
	l.stopLocked()

	// refreshes outlive the Start call but end with Stop
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := l.channel.Subscribe(ctx, identityID, func(e Event) {
		l.handle(runCtx, identityID, e)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("join room: %w", err)
	}
	l.sub = sub
	l.identityID = identityID
	l.cancel = cancel
	l.logger.Debug().Str("identity_id", identityID).Msg("listening for cart updates")
	return nil
}

// Stop leaves the current room, if any.
func (l *Listener) Stop() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// Active reports the identity currently listened for.
func (l *Listener) Active() (string, bool) {
	if l == nil {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identityID, l.sub != nil
}

func (l *Listener) stopLocked() {
	if l.sub == nil {
		return
	}
	if err := l.sub.Close(); err != nil {
		l.logger.Warn().Err(err).Str("identity_id", l.identityID).Msg("leave room")
	}
	l.cancel()
	l.sub = nil
	l.cancel = nil
	l.identityID = ""
}

func (l *Listener) handle(ctx context.Context, identityID string, e Event) {
	if e.Type != EventUpdated || e.IdentityID != identityID {
		return
	}
	if e.Origin != "" && e.Origin == l.clientID {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err := l.refresh(ctx); err != nil {
		l.logger.Warn().Err(err).Str("identity_id", identityID).Msg("refresh after update")
	}
}
