// File: internal/concurrency/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "errors"

// ErrAffinityNotSupported is returned when the platform cannot pin threads.
var ErrAffinityNotSupported = errors.New("concurrency: cpu affinity not supported on this platform")
