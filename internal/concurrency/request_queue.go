// File: internal/concurrency/request_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unbounded multi-producer/single-consumer queue feeding the transfer loop.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// RequestQueue is an unbounded MPSC queue. Any number of goroutines may Push;
// exactly one consumer drains it. Push never blocks on the consumer.
type RequestQueue[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	closed bool
	ready  chan struct{} // capacity 1, coalesces wakeups
}

// NewRequestQueue creates an empty open queue.
func NewRequestQueue[T any]() *RequestQueue[T] {
	return &RequestQueue[T]{
		items: queue.New(),
		ready: make(chan struct{}, 1),
	}
}

// Push appends v. It returns false once the queue is closed.
func (q *RequestQueue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.Add(v)
	q.mu.Unlock()
	q.signal()
	return true
}

// Drain moves up to limit queued items into dst without blocking.
// limit <= 0 drains everything.
func (q *RequestQueue[T]) Drain(dst []T, limit int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Length() > 0 && (limit <= 0 || len(dst) < limit) {
		dst = append(dst, q.items.Remove().(T))
	}
	return dst
}

// Ready becomes readable after a Push or Close. Wakeups coalesce, so a reader
// must Drain until empty rather than count signals.
func (q *RequestQueue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Close rejects further pushes. Items already queued stay drainable.
func (q *RequestQueue[T]) Close() {
	q.mu.Lock()
	already := q.closed
	q.closed = true
	q.mu.Unlock()
	if !already {
		q.signal()
	}
}

// Closed reports whether Close was called.
func (q *RequestQueue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drained reports whether the queue is closed and empty.
func (q *RequestQueue[T]) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && q.items.Length() == 0
}

// Len returns the number of queued items.
func (q *RequestQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *RequestQueue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
