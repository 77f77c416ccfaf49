// File: adapters/engine_adapter.go
// Package adapters provides glue between the net/http multi engine and api.Engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EngineAdapter hides the multi-handle primitives (Add, Perform, Wait,
// InfoRead, Remove) behind the four operations the transfer loop needs and
// owns the token <-> handle mapping while a transfer is attached.

package adapters

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/engine"
)

var _ api.Engine = (*EngineAdapter)(nil)

// EngineAdapter wraps an engine.Multi to satisfy the api.Engine contract.
type EngineAdapter struct {
	multi   *engine.Multi
	next    api.Token
	tokens  map[*engine.Handle]api.Token
	handles map[api.Token]*engine.Handle
	closed  bool
}

// NewEngineAdapter adapts an existing multi handle.
func NewEngineAdapter(m *engine.Multi) *EngineAdapter {
	return &EngineAdapter{
		multi:   m,
		tokens:  make(map[*engine.Handle]api.Token),
		handles: make(map[api.Token]*engine.Handle),
	}
}

// NewDefaultEngine builds a net/http multi engine behind the adapter.
func NewDefaultEngine(cfg engine.Config) *EngineAdapter {
	return NewEngineAdapter(engine.NewMulti(cfg))
}

// Register attaches t to the multi handle and hands out a fresh token.
func (a *EngineAdapter) Register(t api.Transfer) (api.Token, error) {
	if a.closed {
		return 0, api.ErrEngineClosed
	}
	h, err := a.multi.Add(t)
	if err != nil {
		return 0, err
	}
	a.next++
	a.tokens[h] = a.next
	a.handles[a.next] = h
	return a.next, nil
}

// Drive starts newly added transfers and waits for progress.
func (a *EngineAdapter) Drive(timeout time.Duration, wake <-chan struct{}) error {
	if a.closed {
		return api.ErrEngineClosed
	}
	if _, err := a.multi.Perform(); err != nil {
		return fmt.Errorf("engine perform: %w", err)
	}
	a.multi.Wait(timeout, wake)
	return nil
}

// CollectFinished reads every completion message and detaches its handle.
func (a *EngineAdapter) CollectFinished() []api.Finished {
	var out []api.Finished
	for {
		msg, ok := a.multi.InfoRead()
		if !ok {
			return out
		}
		tok, known := a.tokens[msg.Handle]
		if !known {
			panic("adapters: completion for a handle that was never registered")
		}
		delete(a.tokens, msg.Handle)
		delete(a.handles, tok)
		a.multi.Remove(msg.Handle)

		f := api.Finished{Token: tok, Transfer: msg.Handle.Transfer()}
		if msg.Err != nil {
			f.Err = msg.Err
		}
		out = append(out, f)
	}
}

// Attached returns the number of transfers still owned by the engine.
func (a *EngineAdapter) Attached() int {
	return len(a.handles)
}

// Close aborts every attached transfer and shuts the multi handle down.
func (a *EngineAdapter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	for tok, h := range a.handles {
		a.multi.Remove(h)
		delete(a.handles, tok)
		delete(a.tokens, h)
	}
	return a.multi.Close()
}
