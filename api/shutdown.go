// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// GracefulShutdown stops a component after its outstanding work completes.
type GracefulShutdown interface {
	// Shutdown releases resources, waiting at most until ctx ends for
	// in-flight work to drain.
	Shutdown(ctx context.Context) error
}
