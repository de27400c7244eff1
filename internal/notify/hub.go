// Package notify delivers session notifications to learners, logs and the
// live monitor feed.
package notify

import (
	"context"
	"sync"

	"github.com/stemsi/exstem-proctor/internal/exam"
)

const hubBuffer = 32

// Hub routes notifications to the learner connections of a browser context.
// A context may have several connections open (REST polling plus a socket).
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan exam.Notification
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan exam.Notification)}
}

// Subscribe registers a listener for a scope. The returned function removes
// it and closes the channel.
func (h *Hub) Subscribe(scope string) (<-chan exam.Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan exam.Notification, hubBuffer)
	if h.subs[scope] == nil {
		h.subs[scope] = make(map[int]chan exam.Notification)
	}
	h.subs[scope][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[scope], id)
			if len(h.subs[scope]) == 0 {
				delete(h.subs, scope)
			}
			close(ch)
		})
	}
}

// Notify implements exam.Notifier. Full listeners drop the message.
func (h *Hub) Notify(_ context.Context, n exam.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[n.Scope] {
		select {
		case ch <- n:
		default:
		}
	}
}

// Listeners returns the number of open listeners for a scope.
func (h *Hub) Listeners(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[scope])
}
