// Package cartsync keeps a local cart consistent with a signed-in identity's
// server cart: it reconciles on sign-in, propagates edits optimistically and
// refreshes when other clients report changes.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cartsync/internal/domain"
	"cartsync/internal/livesync"
	"cartsync/internal/localstore"
	"cartsync/internal/remote"
	"cartsync/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrLoginRequired = errors.New("login required")
)

const (
	defaultCallTimeout     = 10 * time.Second
	defaultPushParallelism = 4
)

// State is the engine's position in the identity lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateReconciling
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateReconciling:
		return "reconciling"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Remote is the server cart API as seen by the engine.
type Remote interface {
	FetchCart(ctx context.Context, token string) (domain.Cart, error)
	AddLine(ctx context.Context, token, productID string, quantity int) error
	RemoveLine(ctx context.Context, token, productID string) error
	UpdateQuantity(ctx context.Context, token, productID string, quantity int) error
	ClearCart(ctx context.Context, token string) error
	Sync(ctx context.Context, token string, local domain.Cart) (domain.Cart, error)
}

type Options struct {
	Store  *localstore.Store
	Remote Remote
	// Channel is optional; without it the engine neither publishes nor listens.
	Channel  livesync.Channel
	ClientID string

	CallTimeout     time.Duration
	PushParallelism int
	// BatchSync hands the whole local cart to the server's merge endpoint
	// instead of pushing local-only lines one by one.
	BatchSync bool

	Metrics *Metrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Engine is the remote synchronizer. All methods are safe for concurrent use.
type Engine struct {
	store    *localstore.Store
	remote   Remote
	channel  livesync.Channel
	listener *livesync.Listener
	clientID string

	callTimeout time.Duration
	parallelism int
	batchSync   bool

	metrics *Metrics
	logger  zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	state    State
	identity *domain.Identity
	gen      uint64

	// syncMu serializes full fetch passes; commitMu makes "is this session
	// still current" and the store write a single step.
	syncMu   sync.Mutex
	commitMu sync.Mutex

	wg sync.WaitGroup
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("cartsync: store is required")
	}
	if opts.Remote == nil {
		return nil, errors.New("cartsync: remote is required")
	}
	e := &Engine{
		store:       opts.Store,
		remote:      opts.Remote,
		channel:     opts.Channel,
		clientID:    opts.ClientID,
		callTimeout: opts.CallTimeout,
		parallelism: opts.PushParallelism,
		batchSync:   opts.BatchSync,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With().Str("component", "cartsync").Logger(),
		now:         opts.Now,
	}
	if e.clientID == "" {
		e.clientID = uuid.NewString()
	}
	if e.callTimeout <= 0 {
		e.callTimeout = defaultCallTimeout
	}
	if e.parallelism <= 0 {
		e.parallelism = defaultPushParallelism
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.channel != nil {
		e.listener = livesync.NewListener(e.channel, e.clientID, e.liveRefresh, e.logger)
	}
	return e, nil
}

// ClientID identifies this engine as the origin of published updates.
func (e *Engine) ClientID() string {
	return e.clientID
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Identity returns a copy of the signed-in identity, or nil for a guest.
func (e *Engine) Identity() *domain.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.identity == nil {
		return nil
	}
	id := *e.identity
	return &id
}

// Cart returns a snapshot of the local cart.
func (e *Engine) Cart() domain.Cart {
	return e.store.Get()
}

// Subscribe registers fn for local cart changes.
func (e *Engine) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	return e.store.Subscribe(fn)
}

// Start resumes a persisted session. A stored identity whose token is
// missing, malformed or expired is discarded and the engine stays anonymous.
func (e *Engine) Start(ctx context.Context) error {
	stored := e.store.Identity()
	if stored == nil {
		return nil
	}
	if !stored.HasToken() || !session.Usable(stored.Token, e.now()) {
		e.logger.Info().Str("identity_id", stored.ID).Msg("discarding unusable stored session")
		e.store.SaveIdentity(nil)
		return nil
	}
	return e.Login(ctx, stored)
}

// Login persists identity, reconciles the local cart with the server cart and
// starts listening for updates. A failed fetch leaves the local cart alone and
// the session in place; the error is still returned. Logging in as another
// identity first clears the previous user's cart.
func (e *Engine) Login(ctx context.Context, identity *domain.Identity) error {
	if !identity.HasToken() {
		return fmt.Errorf("%w: identity with token required", ErrLoginRequired)
	}
	if !session.Usable(identity.Token, e.now()) {
		return fmt.Errorf("%w: %w", ErrLoginRequired, session.ErrInvalidToken)
	}
	id := *identity

	e.mu.Lock()
	e.gen++
	gen := e.gen
	prev := e.identity
	e.identity = &id
	e.state = StateReconciling
	e.mu.Unlock()

	if e.listener != nil {
		e.listener.Stop()
	}
	// switching identities passes through guest: nothing of the previous
	// user's cart may reach the new one
	if prev != nil && prev.ID != id.ID {
		e.clearLocal()
		e.logger.Info().Str("identity_id", prev.ID).Msg("session ended")
	}
	e.store.SaveIdentity(&id)
	e.logger.Info().Str("identity_id", id.ID).Msg("session started")

	err := e.reconcile(ctx, gen, id)
	e.metrics.observeReconcile(err)
	if errors.Is(err, remote.ErrUnauthorized) {
		e.degrade(gen, err)
		return fmt.Errorf("reconcile: %w", err)
	}

	e.mu.Lock()
	current := e.gen == gen
	if current {
		e.state = StateAuthenticated
	}
	e.mu.Unlock()
	if !current {
		return nil
	}

	if e.listener != nil {
		if lerr := e.listener.Start(ctx, id.ID); lerr != nil {
			e.logger.Warn().Err(lerr).Str("identity_id", id.ID).Msg("live updates unavailable")
		}
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("identity_id", id.ID).Msg("reconcile failed; keeping local cart")
		return fmt.Errorf("reconcile: %w", err)
	}
	return nil
}

// Logout ends the session: the listener stops, the identity is dropped and
// the local cart is cleared. The server cart is left as is.
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	e.gen++
	prev := e.identity
	e.identity = nil
	e.state = StateAnonymous
	e.mu.Unlock()

	if e.listener != nil {
		e.listener.Stop()
	}

	e.clearLocal()

	if prev != nil {
		e.logger.Info().Str("identity_id", prev.ID).Msg("session ended")
	}
}

// Add increments the product's line locally, then on the server.
func (e *Engine) Add(product domain.Product) {
	if product.ID == "" {
		return
	}
	e.store.Add(product)
	e.propagate("add_line", func(ctx context.Context, token string) error {
		return e.remote.AddLine(ctx, token, product.ID, 1)
	})
}

func (e *Engine) Remove(productID string) {
	e.store.Remove(productID)
	e.propagate("remove_line", func(ctx context.Context, token string) error {
		return e.remote.RemoveLine(ctx, token, productID)
	})
}

// SetQuantity sets an absolute quantity; n < 1 removes the line.
func (e *Engine) SetQuantity(productID string, n int) {
	if n < 1 {
		e.Remove(productID)
		return
	}
	e.store.SetQuantity(productID, n)
	e.propagate("update_quantity", func(ctx context.Context, token string) error {
		return e.remote.UpdateQuantity(ctx, token, productID, n)
	})
}

func (e *Engine) Clear() {
	e.store.Clear()
	e.propagate("clear_cart", func(ctx context.Context, token string) error {
		return e.remote.ClearCart(ctx, token)
	})
}

// Refresh replaces the local cart with the server cart. Without a session it
// does nothing. On failure the local cart is left untouched.
func (e *Engine) Refresh(ctx context.Context) error {
	id, gen, ok := e.session()
	if !ok {
		return nil
	}

	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	cart, err := e.fetch(ctx, id.Token)
	if err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			e.degrade(gen, err)
		}
		return fmt.Errorf("refresh: %w", err)
	}
	e.commit(gen, cart)
	return nil
}

// CheckoutReady reports whether the cart can proceed to checkout.
func (e *Engine) CheckoutReady() error {
	if e.store.Get().IsEmpty() {
		return ErrEmptyCart
	}
	if _, _, ok := e.session(); !ok {
		return ErrLoginRequired
	}
	return nil
}

// CompleteCheckout empties the local cart after the server captured the order
// (which clears the server cart on its side).
func (e *Engine) CompleteCheckout() {
	e.commitMu.Lock()
	e.store.Clear()
	e.commitMu.Unlock()
}

// Wait blocks until every background remote call has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close stops listening and waits for background calls.
func (e *Engine) Close() {
	if e.listener != nil {
		e.listener.Stop()
	}
	e.wg.Wait()
}

func (e *Engine) session() (domain.Identity, uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.identity == nil || e.state == StateAnonymous {
		return domain.Identity{}, 0, false
	}
	return *e.identity, e.gen, true
}

// propagate runs call in the background for the current session. Failures are
// logged and counted; the local change stays.
func (e *Engine) propagate(op string, call func(ctx context.Context, token string) error) {
	id, gen, ok := e.session()
	if !ok {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.callTimeout)
		defer cancel()

		started := e.now()
		err := call(ctx, id.Token)
		e.metrics.observeCall(op, e.now().Sub(started), err)
		if err != nil {
			e.logger.Warn().Err(err).Str("op", op).Str("identity_id", id.ID).Msg("remote cart update failed")
			if errors.Is(err, remote.ErrUnauthorized) {
				e.degrade(gen, err)
			}
			return
		}
		e.publish(ctx, id.ID)
	}()
}

func (e *Engine) fetch(ctx context.Context, token string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	started := e.now()
	cart, err := e.remote.FetchCart(ctx, token)
	e.metrics.observeCall("fetch_cart", e.now().Sub(started), err)
	return cart, err
}

// commit writes cart to the store if gen is still the live session.
func (e *Engine) commit(gen uint64, cart domain.Cart) bool {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	e.mu.Lock()
	current := e.gen == gen && e.identity != nil
	e.mu.Unlock()
	if !current {
		return false
	}
	e.store.Replace(cart)
	return true
}

// clearLocal empties the cart and forgets the identity, both durably.
func (e *Engine) clearLocal() {
	e.commitMu.Lock()
	e.store.Clear()
	e.store.SaveIdentity(nil)
	e.commitMu.Unlock()
}

// degrade drops a session the server no longer accepts. Like Logout, the
// local cart goes with it.
func (e *Engine) degrade(gen uint64, cause error) {
	e.mu.Lock()
	if e.gen != gen || e.identity == nil {
		e.mu.Unlock()
		return
	}
	e.gen++
	id := e.identity.ID
	e.identity = nil
	e.state = StateAnonymous
	e.mu.Unlock()

	if e.listener != nil {
		e.listener.Stop()
	}
	e.clearLocal()
	e.logger.Warn().Err(cause).Str("identity_id", id).Msg("session rejected by server; continuing as guest")
}

func (e *Engine) publish(ctx context.Context, identityID string) {
	if e.channel == nil {
		return
	}
	event := livesync.NewUpdated(identityID, e.clientID, e.now())
	if err := e.channel.Publish(ctx, event); err != nil {
		e.logger.Warn().Err(err).Str("identity_id", identityID).Msg("publish cart update")
	}
}

func (e *Engine) liveRefresh(ctx context.Context) error {
	e.metrics.incLiveRefresh()
	return e.Refresh(ctx)
}
