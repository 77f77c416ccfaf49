// File: internal/concurrency/transfer_loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Loop owns a multiplexing engine and services an unbounded set of in-flight
// transfers from one goroutine. Every iteration drains a bounded batch of new
// requests into the engine, drives the engine with a bounded wait, hands each
// finished transfer back through its own completion channel, and exits once
// the request queue is closed, empty and nothing is pending.

package concurrency

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/telemetry"
)

const (
	DefaultBatchSize   = 64
	DefaultPollTimeout = 50 * time.Millisecond
)

// Request is one queue entry: a transfer and the producer end of its completion channel.
type Request[T api.Transfer] struct {
	Transfer T
	Reply    *Oneshot[Completion[T]]
	Enqueued time.Time
}

// NewRequest pairs t with a fresh completion channel.
func NewRequest[T api.Transfer](t T) Request[T] {
	return Request[T]{Transfer: t, Reply: NewOneshot[Completion[T]](), Enqueued: time.Now()}
}

// Completion is the single message sent back for a request.
type Completion[T api.Transfer] struct {
	Transfer T
	Err      error
}

// EntryState tracks one request inside the loop.
type EntryState int

const (
	StateQueued EntryState = iota
	StateRegistered
	StateInFlight
	StateCompleted
	StateFailed
	StateDelivered
)

func (s EntryState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRegistered:
		return "registered"
	case StateInFlight:
		return "in-flight"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// LoopConfig tunes a Loop. Zero values select defaults; the zero value does not pin.
type LoopConfig struct {
	// BatchSize bounds how many new requests are registered per iteration.
	BatchSize int
	// PollTimeout bounds a single engine drive step.
	PollTimeout time.Duration
	// PinCPU pins the loop thread to CPU.
	PinCPU    bool
	CPU       int
	Logger    zerolog.Logger
	Collector telemetry.Collector
}

// LoopStats is a point-in-time snapshot of loop counters.
type LoopStats struct {
	Submitted          uint64
	Registered         uint64
	RegistrationFailed uint64
	Delivered          uint64
	Discarded          uint64
	ChannelClosed      uint64
	InFlight           int
	Queued             int
	Terminated         bool
}

type entry[T api.Transfer] struct {
	req   Request[T]
	state EntryState
}

// Loop is the single consumer of a RequestQueue and the only user of its engine.
type Loop[T api.Transfer] struct {
	engine  api.Engine
	queue   *RequestQueue[Request[T]]
	pending map[api.Token]*entry[T] // loop goroutine only

	batchSize   int
	pollTimeout time.Duration
	cpu         int
	log         zerolog.Logger
	metrics     telemetry.Collector

	running atomic.Bool
	doneCh  chan struct{}
	errMu   sync.Mutex
	err     error

	submitted  atomic.Uint64
	registered atomic.Uint64
	regFailed  atomic.Uint64
	delivered  atomic.Uint64
	discarded  atomic.Uint64
	chanClosed atomic.Uint64
	inFlight   atomic.Int64
}

// NewLoop binds engine and queue. The loop does nothing until Start or Run.
func NewLoop[T api.Transfer](engine api.Engine, queue *RequestQueue[Request[T]], cfg LoopConfig) *Loop[T] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.Collector == nil {
		cfg.Collector = telemetry.Noop()
	}
	if !cfg.PinCPU || cfg.CPU < 0 {
		cfg.CPU = -1
	}
	return &Loop[T]{
		engine:      engine,
		queue:       queue,
		pending:     make(map[api.Token]*entry[T]),
		batchSize:   cfg.BatchSize,
		pollTimeout: cfg.PollTimeout,
		cpu:         cfg.CPU,
		log:         cfg.Logger.With().Str("component", "transfer-loop").Logger(),
		metrics:     cfg.Collector,
		doneCh:      make(chan struct{}),
	}
}

// Start runs the loop on its own OS thread.
func (l *Loop[T]) Start() {
	go func() {
		runtime.LockOSThread()
		if l.cpu < 0 {
			defer runtime.UnlockOSThread()
			l.Run()
			return
		}
		restore, err := PinCurrentThread(l.cpu)
		if err != nil {
			l.log.Warn().Err(err).Int("cpu", l.cpu).Msg("loop thread pinning failed")
			defer runtime.UnlockOSThread()
			l.Run()
			return
		}
		l.Run()
		if err := restore(); err != nil {
			// exiting while locked retires the pinned thread
			l.log.Warn().Err(err).Msg("loop thread affinity restore failed")
			return
		}
		runtime.UnlockOSThread()
	}()
}

// Run executes the loop on the calling goroutine until termination.
func (l *Loop[T]) Run() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	defer close(l.doneCh)
	l.log.Debug().Int("batch", l.batchSize).Dur("poll_timeout", l.pollTimeout).Msg("transfer loop started")

	batch := make([]Request[T], 0, l.batchSize)
	for {
		batch = l.queue.Drain(batch[:0], l.batchSize)
		for i := range batch {
			l.register(batch[i])
			batch[i] = Request[T]{}
		}

		timeout := l.pollTimeout
		if l.queue.Len() > 0 {
			timeout = 0
		}
		if err := l.engine.Drive(timeout, l.queue.Ready()); err != nil {
			l.fail(err)
			return
		}

		l.collect()

		if len(l.pending) == 0 && l.queue.Drained() {
			if err := l.engine.Close(); err != nil {
				l.log.Warn().Err(err).Msg("engine close failed")
			}
			l.log.Debug().Uint64("delivered", l.delivered.Load()).Msg("transfer loop stopped")
			return
		}
	}
}

// Done is closed once the loop has terminated.
func (l *Loop[T]) Done() <-chan struct{} {
	return l.doneCh
}

// Err returns the engine fault that terminated the loop, nil for a clean shutdown.
func (l *Loop[T]) Err() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.err
}

// Stats returns current counters. Safe for concurrent use.
func (l *Loop[T]) Stats() LoopStats {
	terminated := false
	select {
	case <-l.doneCh:
		terminated = true
	default:
	}
	return LoopStats{
		Submitted:          l.submitted.Load(),
		Registered:         l.registered.Load(),
		RegistrationFailed: l.regFailed.Load(),
		Delivered:          l.delivered.Load(),
		Discarded:          l.discarded.Load(),
		ChannelClosed:      l.chanClosed.Load(),
		InFlight:           int(l.inFlight.Load()),
		Queued:             l.queue.Len(),
		Terminated:         terminated,
	}
}

func (l *Loop[T]) register(req Request[T]) {
	l.submitted.Add(1)
	l.metrics.IncSubmitted()
	e := &entry[T]{req: req, state: StateQueued}

	tok, err := l.engine.Register(req.Transfer)
	if err != nil {
		l.regFailed.Add(1)
		l.metrics.IncRegistrationFailed()
		terr := asTransferError(err)
		l.log.Debug().Err(terr).Str("url", req.Transfer.Options().URL).Msg("transfer rejected at registration")
		req.Transfer.Complete(api.Info{Err: terr})
		e.state = StateFailed
		l.deliver(e, terr)
		return
	}
	e.state = StateRegistered
	l.registered.Add(1)
	if _, dup := l.pending[tok]; dup {
		panic(fmt.Sprintf("concurrency: correlation token %d registered twice", tok))
	}
	l.pending[tok] = e
	e.state = StateInFlight
	l.trackInFlight()
}

func (l *Loop[T]) collect() {
	finished := l.engine.CollectFinished()
	for _, f := range finished {
		e, ok := l.pending[f.Token]
		if !ok {
			panic(fmt.Sprintf("concurrency: engine finished unknown token %d", f.Token))
		}
		delete(l.pending, f.Token)
		if f.Err != nil {
			e.state = StateFailed
		} else {
			e.state = StateCompleted
		}
		l.deliver(e, f.Err)
	}
	if len(finished) > 0 {
		l.trackInFlight()
	}
}

// deliver hands the transfer back to its caller. After Send succeeds the
// caller owns the handle and the loop must not touch it.
func (l *Loop[T]) deliver(e *entry[T], err error) {
	outcome := api.CodeOf(err).String()
	opts := e.req.Transfer.Options()
	url, verbose := opts.URL, opts.Verbose
	l.metrics.ObserveTransfer(outcome, time.Since(e.req.Enqueued))

	reply := e.req.Reply
	c := Completion[T]{Transfer: e.req.Transfer, Err: err}
	e.req = Request[T]{}
	e.state = StateDelivered
	if reply.Send(c) {
		l.delivered.Add(1)
		l.metrics.IncDelivered(outcome)
		if verbose {
			l.log.Debug().Str("url", url).Str("outcome", outcome).Msg("transfer delivered")
		}
		return
	}
	l.discarded.Add(1)
	l.metrics.IncDiscarded()
	l.log.Debug().Str("url", url).Msg("caller abandoned transfer, result discarded")
}

// fail tears the loop down after an engine fault: every outstanding caller
// observes a closed completion channel.
func (l *Loop[T]) fail(cause error) {
	l.errMu.Lock()
	l.err = cause
	l.errMu.Unlock()
	l.metrics.IncLoopFault()
	l.log.Error().Err(cause).Int("pending", len(l.pending)).Msg("engine fault, terminating transfer loop")

	l.queue.Close()
	// engine ownership of every pending handle ends here
	if err := l.engine.Close(); err != nil {
		l.log.Warn().Err(err).Msg("engine close failed")
	}

	closed := 0
	for tok, e := range l.pending {
		e.req.Reply.Close()
		delete(l.pending, tok)
		closed++
	}
	for _, r := range l.queue.Drain(nil, 0) {
		r.Reply.Close()
		closed++
	}
	l.chanClosed.Add(uint64(closed))
	l.metrics.IncChannelClosed(closed)
	l.trackInFlight()
}

func (l *Loop[T]) trackInFlight() {
	l.inFlight.Store(int64(len(l.pending)))
	l.metrics.SetInFlight(len(l.pending))
}

func asTransferError(err error) *api.TransferError {
	if te, ok := err.(*api.TransferError); ok {
		return te
	}
	return api.NewTransferError(api.ErrCodeMalformedRequest, "registration rejected", err)
}
