// Package fake
// Author: momentics <momentics@gmail.com>
//
// Scriptable engine for exercising the transfer loop without a network.
// Transfers complete on the driving goroutine, so tests stay deterministic
// and leave no background goroutines behind.

package fake

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/momentics/hioload-http/api"
)

// Response scripts the outcome of one transfer.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Err    *api.TransferError
	// Delay postpones completion relative to registration.
	Delay time.Duration
	// Hang keeps the transfer in flight until the engine closes.
	Hang bool
}

// Responder picks a response from the transfer options.
type Responder func(opts *api.TransferOptions) Response

// Rejecter refuses a transfer at registration when it returns an error.
type Rejecter func(opts *api.TransferOptions) error

// ErrEngineClosed is returned by Register after Close.
var ErrEngineClosed = errors.New("fake engine is closed")

type scheduled struct {
	token    api.Token
	transfer api.Transfer
	resp     Response
	due      time.Time
}

// Engine is a fake implementation of api.Engine.
type Engine struct {
	mu        sync.Mutex
	responder Responder
	reject    Rejecter
	fault     error
	faultCh   chan struct{}
	closed    bool

	next     api.Token
	inflight []*scheduled
	finished []api.Finished

	registered int
	drives     int
	maxBatch   int
	batch      int
}

// NewEngine returns an engine answering every transfer through r.
// A nil responder answers 200 with an empty body.
func NewEngine(r Responder) *Engine {
	if r == nil {
		r = func(*api.TransferOptions) Response { return Response{Status: http.StatusOK} }
	}
	return &Engine{responder: r, faultCh: make(chan struct{}, 1)}
}

// Register implements api.Engine.Register.
func (e *Engine) Register(t api.Transfer) (api.Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrEngineClosed
	}
	opts := t.Options()
	if opts.URL == "" {
		return 0, api.NewTransferError(api.ErrCodeMalformedRequest, "no URL set", nil)
	}
	if e.reject != nil {
		if err := e.reject(opts); err != nil {
			return 0, err
		}
	}
	e.next++
	resp := e.responder(opts)
	e.inflight = append(e.inflight, &scheduled{
		token:    e.next,
		transfer: t,
		resp:     resp,
		due:      time.Now().Add(resp.Delay),
	})
	e.registered++
	e.batch++
	return e.next, nil
}

// Drive implements api.Engine.Drive.
func (e *Engine) Drive(timeout time.Duration, wake <-chan struct{}) error {
	e.mu.Lock()
	e.drives++
	if e.batch > e.maxBatch {
		e.maxBatch = e.batch
	}
	e.batch = 0
	if e.fault != nil {
		err := e.fault
		e.mu.Unlock()
		return err
	}
	now := time.Now()
	wait := timeout
	for _, s := range e.inflight {
		if s.resp.Hang {
			continue
		}
		if d := s.due.Sub(now); d < wait {
			wait = d
		}
	}
	e.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-wake:
		case <-e.faultCh:
		}
		timer.Stop()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fault != nil {
		return e.fault
	}
	e.completeDue(time.Now())
	return nil
}

// CollectFinished implements api.Engine.CollectFinished.
func (e *Engine) CollectFinished() []api.Finished {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.finished
	e.finished = nil
	return out
}

// Close implements api.Engine.Close.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.inflight = nil
	return nil
}

// InjectFault makes the next Drive call fail with err.
func (e *Engine) InjectFault(err error) {
	e.mu.Lock()
	e.fault = err
	e.mu.Unlock()
	select {
	case e.faultCh <- struct{}{}:
	default:
	}
}

// SetRejecter installs a registration filter.
func (e *Engine) SetRejecter(r Rejecter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reject = r
}

// Registered reports how many transfers were accepted.
func (e *Engine) Registered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registered
}

// InFlight reports how many transfers have not completed.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inflight)
}

// MaxBatch reports the largest number of registrations seen between two drives.
func (e *Engine) MaxBatch() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxBatch
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) completeDue(now time.Time) {
	keep := e.inflight[:0]
	for _, s := range e.inflight {
		if s.resp.Hang || s.due.After(now) {
			keep = append(keep, s)
			continue
		}
		e.finished = append(e.finished, e.complete(s))
	}
	for i := len(keep); i < len(e.inflight); i++ {
		e.inflight[i] = nil
	}
	e.inflight = keep
}

func (e *Engine) complete(s *scheduled) api.Finished {
	opts := s.transfer.Options()
	info := api.Info{
		StatusCode:   s.resp.Status,
		Proto:        "HTTP/1.1",
		Header:       s.resp.Header,
		EffectiveURL: opts.URL,
	}
	info.Timing.Total = time.Since(s.due.Add(-s.resp.Delay))

	terr := s.resp.Err
	if terr == nil && opts.FailOnError && s.resp.Status >= 400 {
		terr = api.NewTransferError(api.ErrCodeHTTPStatus, fmt.Sprintf("the requested URL returned error: %d", s.resp.Status), nil)
	}
	if terr == nil {
		sink := s.transfer.Sink()
		if hh, ok := sink.(api.HeaderHandler); ok {
			for name, values := range s.resp.Header {
				for _, v := range values {
					hh.Header(name, v)
				}
			}
		}
		if !opts.NoBody && len(s.resp.Body) > 0 {
			n, err := sink.Write(s.resp.Body)
			info.BytesReceived = int64(n)
			if err != nil || n != len(s.resp.Body) {
				terr = api.NewTransferError(api.ErrCodeWrite, "failed writing received data", err)
			}
		}
	}
	info.Err = terr
	s.transfer.Complete(info)

	f := api.Finished{Token: s.token, Transfer: s.transfer}
	if terr != nil {
		f.Err = terr
	}
	return f
}
