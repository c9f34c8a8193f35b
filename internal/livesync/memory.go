package livesync

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// MemoryHub is an in-process Channel. Publish delivers synchronously to every
// handler of the identity room, in subscription order.
type MemoryHub struct {
	mu     sync.Mutex
	rooms  map[string]map[int]Handler
	nextID int
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{rooms: make(map[string]map[int]Handler)}
}

func (h *MemoryHub) Subscribe(_ context.Context, identityID string, handler Handler) (Subscription, error) {
	if identityID == "" {
		return nil, errors.New("livesync: identity id is required")
	}
	if handler == nil {
		return nil, errors.New("livesync: handler is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[identityID]
	if !ok {
		room = make(map[int]Handler)
		h.rooms[identityID] = room
	}
	h.nextID++
	id := h.nextID
	room[id] = handler
	return &memorySub{hub: h, identityID: identityID, id: id}, nil
}

func (h *MemoryHub) Publish(_ context.Context, event Event) error {
	h.mu.Lock()
	room := h.rooms[event.IdentityID]
	ids := make([]int, 0, len(room))
	for id := range room {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, room[id])
	}
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
	return nil
}

// Subscribers reports how many handlers are joined to an identity room.
func (h *MemoryHub) Subscribers(identityID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[identityID])
}

func (h *MemoryHub) leave(identityID string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[identityID]
	delete(room, id)
	if len(room) == 0 {
		delete(h.rooms, identityID)
	}
}

type memorySub struct {
	hub        *MemoryHub
	identityID string
	id         int
	once       sync.Once
}

func (s *memorySub) Close() error {
	s.once.Do(func() { s.hub.leave(s.identityID, s.id) })
	return nil
}
