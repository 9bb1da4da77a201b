package queue

import (
	"sync"

	eq "github.com/eapache/queue"

	nserrors "github.com/nanoserve/nanoserve/pkg/common/errors"
	"github.com/nanoserve/nanoserve/pkg/common/validation"
)

// Config holds configuration options for creating a Queue.
type Config[T any] struct {
	// Capacity is the maximum number of queued items.
	// 0 means the queue is unbounded.
	Capacity int

	// OnDrop is called for every item discarded by Destroy.
	// Use it to release resources (e.g. close a connection handle).
	OnDrop func(T)
}

// Stats holds counters describing queue activity.
type Stats struct {
	// Pushed is the total number of successful Push operations.
	Pushed int64

	// Popped is the total number of items returned by Pop.
	Popped int64

	// Dropped is the total number of items discarded by Destroy.
	Dropped int64

	// BlockedPushes is the number of Push operations that had to wait
	// for space in a bounded queue.
	BlockedPushes int64
}

// Queue is a thread-safe FIFO with blocking push/pop and one-way shutdown.
//
// The zero value is not usable; construct with New or NewWithConfig.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    *eq.Queue
	capacity int
	closed   bool
	onDrop   func(T)

	stats Stats
}

// New creates a Queue with the given capacity. Capacity 0 means unbounded.
func New[T any](capacity int) (*Queue[T], error) {
	return NewWithConfig(Config[T]{Capacity: capacity})
}

// NewWithConfig creates a Queue with the specified configuration.
func NewWithConfig[T any](cfg Config[T]) (*Queue[T], error) {
	if err := validation.ValidateNonNegative("queue", "capacity", cfg.Capacity); err != nil {
		return nil, err
	}

	q := &Queue[T]{
		items:    eq.New(),
		capacity: cfg.Capacity,
		onDrop:   cfg.OnDrop,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	return q, nil
}

// Push appends v to the tail of the queue and wakes one blocked Pop.
//
// If the queue is bounded and full, Push blocks until space frees or
// Shutdown is called; shutdown observed on any wake yields ErrQueueClosed
// and the caller keeps ownership of v.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nserrors.ErrQueueClosed
	}

	if q.capacity > 0 && q.items.Length() >= q.capacity {
		q.stats.BlockedPushes++
		for q.capacity > 0 && q.items.Length() >= q.capacity && !q.closed {
			q.notFull.Wait()
		}
	}

	if q.closed {
		return nserrors.ErrQueueClosed
	}

	q.items.Add(v)
	q.stats.Pushed++
	q.notEmpty.Signal()

	return nil
}

// Pop removes and returns the oldest queued item.
//
// Pop blocks while the queue is empty and running. After Shutdown, every
// already-queued item is still returned in FIFO order; once the queue is
// drained Pop returns ErrEndOfQueue on this and all subsequent calls.
func (q *Queue[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	if q.items.Length() == 0 {
		var zero T
		return zero, nserrors.ErrEndOfQueue
	}

	v := q.items.Remove().(T)
	q.stats.Popped++
	q.notFull.Signal()

	return v, nil
}

// Shutdown marks the queue as closed and wakes every blocked Push and Pop.
// The flag is monotonic; calling Shutdown more than once is a no-op.
func (q *Queue[T]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Destroy discards any items still queued, invoking OnDrop for each, and
// returns the number dropped. Call only after every consumer has exited;
// Destroy implies Shutdown.
func (q *Queue[T]) Destroy() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.notEmpty.Broadcast()
		q.notFull.Broadcast()
	}

	dropped := 0
	for q.items.Length() > 0 {
		v := q.items.Remove().(T)
		if q.onDrop != nil {
			q.onDrop(v)
		}
		dropped++
	}
	q.stats.Dropped += int64(dropped)

	return dropped
}

// Len returns the current number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Cap returns the configured capacity; 0 means unbounded.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

// IsShutdown returns true once Shutdown or Destroy has been called.
func (q *Queue[T]) IsShutdown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Stats returns a snapshot of queue activity counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}
