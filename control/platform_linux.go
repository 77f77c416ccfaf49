//go:build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific platform probes.

package control

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// RegisterPlatformProbes adds CPU and affinity probes.
func RegisterPlatformProbes(p *Probes) {
	p.Register("platform.os", func() any { return runtime.GOOS })
	p.Register("platform.cpus", func() any { return runtime.NumCPU() })
	p.Register("platform.gomaxprocs", func() any { return runtime.GOMAXPROCS(0) })
	p.Register("platform.affinity_cpus", func() any {
		var set unix.CPUSet
		if err := unix.SchedGetaffinity(0, &set); err != nil {
			return -1
		}
		return set.Count()
	})
}
