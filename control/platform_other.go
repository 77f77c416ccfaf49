//go:build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>
//
// Platform probes for systems without thread affinity support.

package control

import "runtime"

// RegisterPlatformProbes adds CPU probes.
func RegisterPlatformProbes(p *Probes) {
	p.Register("platform.os", func() any { return runtime.GOOS })
	p.Register("platform.cpus", func() any { return runtime.NumCPU() })
	p.Register("platform.gomaxprocs", func() any { return runtime.GOMAXPROCS(0) })
}
