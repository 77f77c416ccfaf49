// File: internal/concurrency/pin_other.go
//go:build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

// PinCurrentThread is unsupported off Linux.
func PinCurrentThread(cpu int) (restore func() error, err error) {
	return nil, ErrAffinityNotSupported
}
