// Package bus broadcasts aggregated state to observers.
//
// Publishing is non-blocking: a subscriber that cannot keep up has states
// dropped (and counted) rather than stalling the publisher. Observers that
// only care about the freshest value can poll Current instead of
// subscribing.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/classtwin/classtwin/internal/domain/model"
	"github.com/classtwin/classtwin/pkg/metrics"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrBusClosed          = errors.New("state bus is closed")
	ErrSubscriberExists   = errors.New("subscriber id already registered")
	ErrSubscriberNotFound = errors.New("subscriber id not registered")
	ErrNilChannel         = errors.New("subscriber channel must not be nil")
)

// State is the payload type broadcast by the bus.
type State = model.AggregatedState

// SubscriberStats counts deliveries and drops for one subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber struct {
	id      string
	ch      chan<- State
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// StateBus fans aggregated states out to registered subscribers and keeps
// the latest published value for pull-style readers.
type StateBus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	current     *State
	closed      bool
}

// New creates an empty state bus.
func New() *StateBus {
	return &StateBus{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a channel under the given id. Sends to the channel
// are non-blocking; size the channel for the observer's cadence.
func (b *StateBus) Subscribe(id string, ch chan<- State) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if ch == nil {
		return ErrNilChannel
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	b.subscribers[id] = &subscriber{id: id, ch: ch}
	metrics.UpdateSubscriberCount(len(b.subscribers))
	return nil
}

// Unsubscribe removes a subscriber. The caller owns the channel and is
// responsible for draining or closing it.
func (b *StateBus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	metrics.UpdateSubscriberCount(len(b.subscribers))
	return nil
}

// Publish replaces the current state and distributes it to all
// subscribers without blocking.
func (b *StateBus) Publish(state State) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.current = &state
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	metrics.RecordStatePublished()
	for _, s := range subs {
		select {
		case s.ch <- state:
			s.sent.Add(1)
		default:
			s.dropped.Add(1)
			metrics.RecordStateDropped()
		}
	}
}

// Current returns the most recently published state. The second return is
// false before the first publish.
func (b *StateBus) Current() (State, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return State{}, false
	}
	return *b.current, true
}

// Stats returns delivery statistics for a subscriber.
func (b *StateBus) Stats(id string) (SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, exists := b.subscribers[id]
	if !exists {
		return SubscriberStats{}, ErrSubscriberNotFound
	}
	return SubscriberStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}, nil
}

// Close shuts down the bus. Further publishes are ignored and further
// subscriptions rejected.
func (b *StateBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.subscribers = make(map[string]*subscriber)
	metrics.UpdateSubscriberCount(0)
}
