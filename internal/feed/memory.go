package feed

import (
	"context"
	"sync"
)

const subscriberBuffer = 64

// MemoryFeed fans events out to in-process subscribers. Slow subscribers
// miss events rather than block publishers.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewMemoryFeed creates an empty MemoryFeed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]chan Event)}
}

// Publish implements Feed.
func (f *MemoryFeed) Publish(_ context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe implements Feed.
func (f *MemoryFeed) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	ch := make(chan Event, subscriberBuffer)
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			close(ch)
			f.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
