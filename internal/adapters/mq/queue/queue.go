// Package queue defines the contract for handing detection snapshots from
// the sensing adapter to the aggregation worker.
//
// The queue is deliberately lossy: when the aggregation worker falls behind
// the device frame rate, new frames are dropped and counted rather than
// blocking the sensing callback.
package queue

import (
	"context"
	"sync"

	"github.com/classtwin/classtwin/internal/domain/model"
	"github.com/classtwin/classtwin/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultBufferSize = 64
)

// Snapshot is the payload type flowing through the queue.
type Snapshot = model.Snapshot

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a snapshot to the queue.
	// Returns false if the queue is full and the snapshot was dropped.
	Enqueue(ctx context.Context, s Snapshot) bool

	// Dequeue returns a channel that receives snapshots as they arrive.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Snapshot

	// Len returns the current number of queued snapshots.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new snapshots can be
	// enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	snapshots chan Snapshot
	size      int

	mu     sync.RWMutex
	closed bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithBufferSize sets the number of snapshots buffered before frames are
// dropped.
func WithBufferSize(size int) Option {
	return func(q *InMemoryQueue) {
		if size > 0 {
			q.size = size
		}
	}
}

// NewInMemoryQueue creates a new in-memory snapshot queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		size: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.snapshots = make(chan Snapshot, q.size)

	metrics.UpdateFrameQueueSize(0)
	return q
}

// Enqueue adds a snapshot to the queue, dropping it when full or closed.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Snapshot) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.snapshots <- s:
		metrics.UpdateFrameQueueSize(len(q.snapshots))
		return true
	case <-ctx.Done():
		return false
	default:
		metrics.RecordFrameDropped()
		return false
	}
}

// Dequeue returns a channel that receives snapshots as they arrive.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for snap := range q.snapshots {
			select {
			case out <- snap:
				metrics.UpdateFrameQueueSize(len(q.snapshots))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued snapshots.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.snapshots)
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.snapshots)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
