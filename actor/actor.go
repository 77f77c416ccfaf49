// File: actor/actor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package actor

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/momentics/hioload-http/adapters"
	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/internal/concurrency"
	"github.com/momentics/hioload-http/transfer"
)

// ErrNilTransfer is returned when Submit is given a nil handle.
var ErrNilTransfer = errors.New("actor: nil transfer handle")

// Stats is a snapshot of the transfer loop counters.
type Stats = concurrency.LoopStats

// shared is the state every clone points at.
type shared[H api.Handler] struct {
	queue *concurrency.RequestQueue[concurrency.Request[*transfer.Easy[H]]]
	loop  *concurrency.Loop[*transfer.Easy[H]]
	refs  atomic.Int64
}

// Actor is one reference to a running transfer loop.
type Actor[H api.Handler] struct {
	s      *shared[H]
	closed atomic.Bool
}

// New starts a transfer loop over the default net/http engine.
func New[H api.Handler](opts ...Option) *Actor[H] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return start[H](adapters.NewDefaultEngine(o.engine), o)
}

// NewWithEngine starts a transfer loop that owns eng. eng must not be used elsewhere.
func NewWithEngine[H api.Handler](eng api.Engine, opts ...Option) *Actor[H] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return start[H](eng, o)
}

func start[H api.Handler](eng api.Engine, o options) *Actor[H] {
	s := &shared[H]{queue: concurrency.NewRequestQueue[concurrency.Request[*transfer.Easy[H]]]()}
	s.loop = concurrency.NewLoop[*transfer.Easy[H]](eng, s.queue, o.loop)
	s.loop.Start()
	return s.attach()
}

func (s *shared[H]) attach() *Actor[H] {
	s.refs.Add(1)
	a := &Actor[H]{s: s}
	// a clone dropped without Close still releases its reference
	runtime.SetFinalizer(a, (*Actor[H]).Close)
	return a
}

// Clone returns an independent handle onto the same loop.
// Cloning a closed handle yields a closed handle.
func (a *Actor[H]) Clone() *Actor[H] {
	if a.closed.Load() {
		c := &Actor[H]{s: a.s}
		c.closed.Store(true)
		return c
	}
	return a.s.attach()
}

// Close releases this handle. Closing the last handle closes the request
// queue; the loop then exits once pending transfers are delivered.
// Close is idempotent.
func (a *Actor[H]) Close() {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(a, nil)
	if a.s.refs.Add(-1) == 0 {
		a.s.queue.Close()
	}
}

// Submit enqueues e for the loop and returns immediately. Ownership of e
// passes to the loop until the Future resolves.
func (a *Actor[H]) Submit(e *transfer.Easy[H]) (*Future[H], error) {
	if e == nil {
		return nil, ErrNilTransfer
	}
	if a.closed.Load() {
		return nil, api.ErrLoopUnavailable
	}
	e.Reset()
	req := concurrency.NewRequest(e)
	if !a.s.queue.Push(req) {
		return nil, api.ErrLoopUnavailable
	}
	return &Future[H]{reply: req.Reply}, nil
}

// SendRequest submits e and waits for its result.
func (a *Actor[H]) SendRequest(ctx context.Context, e *transfer.Easy[H]) (*transfer.Easy[H], error) {
	f, err := a.Submit(e)
	if err != nil {
		return nil, err
	}
	return f.Await(ctx)
}

// Done is closed when the loop has terminated.
func (a *Actor[H]) Done() <-chan struct{} {
	return a.s.loop.Done()
}

// Err reports the engine fault that stopped the loop, nil otherwise.
func (a *Actor[H]) Err() error {
	return a.s.loop.Err()
}

// Stats returns the loop counters.
func (a *Actor[H]) Stats() Stats {
	return a.s.loop.Stats()
}

// Future is the pending result of one Submit.
type Future[H api.Handler] struct {
	reply *concurrency.Oneshot[concurrency.Completion[*transfer.Easy[H]]]
}

// Await blocks until the transfer is delivered, the loop dies, or ctx ends.
//
// On success it returns the handle. A per-request failure returns the handle
// together with a *api.TransferError. A dead loop yields api.ErrChannelClosed.
// If ctx ends first, ctx.Err() is returned and the result is discarded by the
// loop once the transfer completes.
func (f *Future[H]) Await(ctx context.Context) (*transfer.Easy[H], error) {
	c, err := f.reply.Recv(ctx)
	if err != nil {
		return nil, err
	}
	if c.Err != nil {
		return c.Transfer, c.Err
	}
	return c.Transfer, nil
}

// Done is closed once Await can return without blocking.
func (f *Future[H]) Done() <-chan struct{} {
	return f.reply.Done()
}
