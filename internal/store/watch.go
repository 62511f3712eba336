package store

import (
	"context"
	"sync"
	"time"

	"github.com/inkwelllabs/corkboard/internal/board"
)

// EventType enumerates the change kinds on the live feed.
type EventType string

const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
	EventTypeDeleted EventType = "deleted"
)

// Event is one broadcast change to a board's object collection. Deleted
// events carry only the object id.
type Event struct {
	BoardID   string
	Type      EventType
	ObjectID  string
	Object    board.Object
	Timestamp time.Time
}

const feedBufferSize = 16

// Feed fans out values to per-key subscribers. Slow subscribers drop
// messages instead of blocking the writer; consumers reconcile from the
// store on the next snapshot.
type Feed[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]chan T
	nextID      int64
}

// NewFeed returns an empty fan-out.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subscribers: make(map[string]map[int64]chan T)}
}

// Subscribe registers a listener for the given key. The returned cancel
// func is idempotent; cancellation also follows ctx.
func (f *Feed[T]) Subscribe(ctx context.Context, key string) (<-chan T, func()) {
	if key == "" {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	stream := make(chan T, feedBufferSize)
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if _, ok := f.subscribers[key]; !ok {
		f.subscribers[key] = make(map[int64]chan T)
	}
	f.subscribers[key][id] = stream
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			if streams := f.subscribers[key]; streams != nil {
				delete(streams, id)
				if len(streams) == 0 {
					delete(f.subscribers, key)
				}
			}
			f.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return stream, cancel
}

// Publish delivers the value to every subscriber of the key, dropping it
// for subscribers whose buffer is full.
func (f *Feed[T]) Publish(key string, value T) {
	f.mu.RLock()
	streams := f.subscribers[key]
	copies := make([]chan T, 0, len(streams))
	for _, stream := range streams {
		copies = append(copies, stream)
	}
	f.mu.RUnlock()

	for _, stream := range copies {
		select {
		case stream <- value:
		default:
		}
	}
}

// SubscriberCount reports active listeners for a key.
func (f *Feed[T]) SubscriberCount(key string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[key])
}
