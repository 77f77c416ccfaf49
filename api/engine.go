// File: api/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contract between the transfer event loop and a multiplexing engine.

package api

import "time"

// Token is an opaque correlation key assigned to a registered transfer.
type Token uint64

// Finished reports one transfer the engine is done with. The engine gives up
// ownership of Transfer when it returns a Finished value.
type Finished struct {
	Token    Token
	Transfer Transfer
	// Err is nil on success, otherwise usually a *TransferError.
	Err error
}

// Engine drives many transfers from a single goroutine. None of its methods
// are safe for concurrent use; the event loop is the only caller.
type Engine interface {
	// Register takes ownership of t and returns its correlation token.
	// A malformed transfer is rejected with an error and ownership stays with the caller.
	Register(t Transfer) (Token, error)

	// Drive advances I/O, waiting at most timeout for something to finish.
	// It returns early when wake becomes readable. A non-nil error means the
	// engine is unusable.
	Drive(timeout time.Duration, wake <-chan struct{}) error

	// CollectFinished returns every transfer that finished since the last call.
	CollectFinished() []Finished

	// Close aborts outstanding transfers and releases engine resources.
	Close() error
}
