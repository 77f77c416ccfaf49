// File: internal/concurrency/pin_linux.go
//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PinCurrentThread binds the calling OS thread to a single logical CPU and
// returns a func that restores the previous affinity mask.
// The caller must hold runtime.LockOSThread.
func PinCurrentThread(cpu int) (restore func() error, err error) {
	if cpu < 0 {
		return nil, fmt.Errorf("pin thread: invalid cpu %d", cpu)
	}
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return nil, fmt.Errorf("pin thread: read affinity: %w", err)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("pin thread to cpu %d: %w", cpu, err)
	}
	return func() error {
		if err := unix.SchedSetaffinity(0, &prev); err != nil {
			return fmt.Errorf("unpin thread: %w", err)
		}
		return nil
	}, nil
}
