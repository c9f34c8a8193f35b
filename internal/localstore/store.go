package localstore

import (
	"encoding/json"
	"sync"

	"cartsync/internal/domain"

	"github.com/rs/zerolog"
)

// Store is the in-memory source of truth for the cart, mirrored to a durable
// slot after every mutation. It also owns the persisted identity.
type Store struct {
	mu     sync.RWMutex
	lines  []domain.CartLine
	slot   Slot
	logger zerolog.Logger

	subMu       sync.Mutex
	subscribers map[int]func(domain.Cart)
	nextSubID   int
}

// New restores the cart from slot. A missing or unreadable value yields an
// empty cart.
func New(slot Slot, logger zerolog.Logger) *Store {
	if slot == nil {
		slot = NewMemorySlot()
	}
	s := &Store{
		slot:        slot,
		logger:      logger.With().Str("component", "localstore").Logger(),
		subscribers: make(map[int]func(domain.Cart)),
	}
	s.lines = s.restore().Lines
	return s
}

func (s *Store) restore() domain.Cart {
	raw, ok, err := s.slot.Load(CartKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load cart slot")
		return domain.Cart{}
	}
	if !ok || raw == "" {
		return domain.Cart{}
	}
	var lines []domain.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed cart slot")
		return domain.Cart{}
	}
	return domain.Cart{Lines: lines}.Normalize()
}

// Get returns a snapshot of the current cart.
func (s *Store) Get() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Cart{Lines: s.lines}.Clone()
}

// Replace overwrites the cart wholesale.
func (s *Store) Replace(cart domain.Cart) {
	s.mutate(func(lines []domain.CartLine) []domain.CartLine {
		return cart.Normalize().Lines
	})
}

// Add increments the product's line or appends one with quantity 1.
func (s *Store) Add(product domain.Product) {
	if product.ID == "" {
		return
	}
	s.mutate(func(lines []domain.CartLine) []domain.CartLine {
		for i := range lines {
			if lines[i].ProductID == product.ID {
				lines[i].Quantity++
				return lines
			}
		}
		return append(lines, domain.LineFromProduct(product, 1))
	})
}

func (s *Store) Remove(productID string) {
	s.mutate(func(lines []domain.CartLine) []domain.CartLine {
		out := lines[:0]
		for _, line := range lines {
			if line.ProductID != productID {
				out = append(out, line)
			}
		}
		return out
	})
}

// SetQuantity sets an absolute quantity; n < 1 removes the line.
func (s *Store) SetQuantity(productID string, n int) {
	if n < 1 {
		s.Remove(productID)
		return
	}
	s.mutate(func(lines []domain.CartLine) []domain.CartLine {
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity = n
			}
		}
		return lines
	})
}

// Clear empties the cart and erases the durable copy.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	if err := s.slot.Delete(CartKey); err != nil {
		s.logger.Warn().Err(err).Msg("erase cart slot")
	}
	snapshot := domain.Cart{}.Clone()
	s.mu.Unlock()
	s.notify(snapshot)
}

func (s *Store) mutate(fn func([]domain.CartLine) []domain.CartLine) {
	s.mu.Lock()
	working := domain.Cart{Lines: s.lines}.Clone().Lines
	s.lines = fn(working)
	s.persistLocked()
	snapshot := domain.Cart{Lines: s.lines}.Clone()
	s.mu.Unlock()
	s.notify(snapshot)
}

func (s *Store) persistLocked() {
	lines := s.lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode cart")
		return
	}
	if err := s.slot.Save(CartKey, string(b)); err != nil {
		s.logger.Warn().Err(err).Msg("persist cart slot")
	}
}

// Subscribe registers fn for change notifications. Callbacks run after the
// lock is released, on the mutating goroutine.
func (s *Store) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(cart domain.Cart) {
	s.subMu.Lock()
	fns := make([]func(domain.Cart), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(cart.Clone())
	}
}

// Identity returns the persisted identity, or nil for a guest.
func (s *Store) Identity() *domain.Identity {
	raw, ok, err := s.slot.Load(IdentityKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load identity slot")
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var id domain.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed identity slot")
		return nil
	}
	return &id
}

// SaveIdentity persists id; nil erases the key.
func (s *Store) SaveIdentity(id *domain.Identity) {
	if id == nil {
		if err := s.slot.Delete(IdentityKey); err != nil {
			s.logger.Warn().Err(err).Msg("erase identity slot")
		}
		return
	}
	b, err := json.Marshal(id)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode identity")
		return
	}
	if err := s.slot.Save(IdentityKey, string(b)); err != nil {
		s.logger.Warn().Err(err).Msg("persist identity slot")
	}
}
