// control/probes.go
// Author: momentics <momentics@gmail.com>
//
// Runtime probe registry for inspecting a running transfer stack.

package control

import (
	"sort"
	"sync"
)

// Probes holds registered probe functions.
type Probes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewProbes creates a probe registry.
func NewProbes() *Probes {
	return &Probes{
		probes: make(map[string]func() any),
	}
}

// Register inserts or replaces a named probe.
func (p *Probes) Register(name string, fn func() any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[name] = fn
}

// Unregister removes a probe.
func (p *Probes) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.probes, name)
}

// Names lists registered probes in order.
func (p *Probes) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.probes))
	for k := range p.probes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Dump evaluates every probe.
func (p *Probes) Dump() map[string]any {
	p.mu.RLock()
	fns := make(map[string]func() any, len(p.probes))
	for k, fn := range p.probes {
		fns[k] = fn
	}
	p.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}
