// Package broker fans out "users changed" signals to live snapshot watchers.
package broker

import (
	"errors"
	"sync"
)

var ErrClientLimitExceeded = errors.New("watcher limit exceeded")

// Hub keeps one coalescing signal channel per watcher. A notification that
// arrives while the previous one is still pending is merged into it, so a
// slow watcher never blocks Notify.
type Hub struct {
	mu         sync.Mutex
	maxClients int
	clients    map[string]chan struct{}
}

// NewHub returns a hub that accepts at most maxClients watchers. Zero or a
// negative value means no limit.
func NewHub(maxClients int) *Hub {
	return &Hub{
		maxClients: maxClients,
		clients:    make(map[string]chan struct{}),
	}
}

// Subscribe registers clientID and returns its signal channel together with a
// cancel func that unregisters it. Re-subscribing an id replaces the old
// channel.
func (h *Hub) Subscribe(clientID string) (<-chan struct{}, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[clientID]; ok {
		close(old)
		delete(h.clients, clientID)
	}
	if h.maxClients > 0 && len(h.clients) >= h.maxClients {
		return nil, nil, ErrClientLimitExceeded
	}

	ch := make(chan struct{}, 1)
	h.clients[clientID] = ch

	return ch, func() { h.remove(clientID, ch) }, nil
}

func (h *Hub) remove(clientID string, ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[clientID]; ok && cur == ch {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Notify signals every watcher without blocking.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
