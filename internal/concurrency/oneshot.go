// File: internal/concurrency/oneshot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-message completion channel between the transfer loop and one waiting caller.

package concurrency

import (
	"context"
	"sync/atomic"

	"github.com/momentics/hioload-http/api"
)

const (
	oneshotPending uint32 = iota
	oneshotSent
	oneshotClosed
	oneshotAbandoned
	oneshotAbandonedDone
)

// Oneshot carries at most one value from a single producer to a single consumer.
// The producer either Sends once or Closes; whichever comes first wins.
// Send and Abandon race on one state word, so exactly one of them succeeds.
type Oneshot[T any] struct {
	done  chan struct{}
	value T // written before done is closed
	state atomic.Uint32
}

// NewOneshot allocates a fresh completion channel.
func NewOneshot[T any]() *Oneshot[T] {
	return &Oneshot[T]{done: make(chan struct{})}
}

// Send delivers v. It returns false when the channel was already used or the
// consumer abandoned it; in both cases v is discarded.
func (o *Oneshot[T]) Send(v T) bool {
	if o.state.CompareAndSwap(oneshotPending, oneshotSent) {
		o.value = v
		close(o.done)
		return true
	}
	o.finishAbandoned()
	return false
}

// Close finishes the channel without a message. The consumer observes
// api.ErrChannelClosed.
func (o *Oneshot[T]) Close() {
	if o.state.CompareAndSwap(oneshotPending, oneshotClosed) {
		close(o.done)
		return
	}
	o.finishAbandoned()
}

func (o *Oneshot[T]) finishAbandoned() {
	if o.state.CompareAndSwap(oneshotAbandoned, oneshotAbandonedDone) {
		close(o.done)
	}
}

// Abandon marks the consumer as gone. It reports false when the producer
// already finished the channel, in which case the result stays readable.
func (o *Oneshot[T]) Abandon() bool {
	if o.state.CompareAndSwap(oneshotPending, oneshotAbandoned) {
		return true
	}
	return o.Abandoned()
}

// Abandoned reports whether the consumer gave up.
func (o *Oneshot[T]) Abandoned() bool {
	s := o.state.Load()
	return s == oneshotAbandoned || s == oneshotAbandonedDone
}

// Done is closed once the channel holds a value or was closed empty.
func (o *Oneshot[T]) Done() <-chan struct{} {
	return o.done
}

// Recv waits for the value. When ctx ends first the channel is abandoned and
// ctx.Err() is returned. Recv may be called again after it returned a value.
func (o *Oneshot[T]) Recv(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.result()
	case <-ctx.Done():
		if o.Abandon() {
			var zero T
			return zero, ctx.Err()
		}
		// the producer won; done closes right after its state change
		<-o.done
		return o.result()
	}
}

func (o *Oneshot[T]) result() (T, error) {
	if o.state.Load() != oneshotSent {
		var zero T
		return zero, api.ErrChannelClosed
	}
	return o.value, nil
}
