// File: actor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package actor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-http/engine"
	"github.com/momentics/hioload-http/internal/concurrency"
	"github.com/momentics/hioload-http/telemetry"
)

type options struct {
	loop   concurrency.LoopConfig
	engine engine.Config
}

func defaultOptions() options {
	return options{
		loop: concurrency.LoopConfig{
			BatchSize:   concurrency.DefaultBatchSize,
			PollTimeout: concurrency.DefaultPollTimeout,
			CPU:         -1,
			Logger:      zerolog.Nop(),
			Collector:   telemetry.Noop(),
		},
		engine: engine.DefaultConfig(),
	}
}

// Option configures an Actor.
type Option func(*options)

// WithBatchSize bounds how many new requests the loop registers per iteration.
func WithBatchSize(n int) Option {
	return func(o *options) { o.loop.BatchSize = n }
}

// WithPollTimeout bounds how long one engine drive step may wait.
func WithPollTimeout(d time.Duration) Option {
	return func(o *options) { o.loop.PollTimeout = d }
}

// WithCPU pins the loop thread to the given logical CPU. Negative disables pinning.
func WithCPU(cpu int) Option {
	return func(o *options) {
		o.loop.PinCPU = cpu >= 0
		o.loop.CPU = cpu
	}
}

// WithLogger sets the logger for the loop and the default engine.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.loop.Logger = l
		o.engine.Logger = l
	}
}

// WithCollector records loop metrics.
func WithCollector(c telemetry.Collector) Option {
	return func(o *options) {
		if c != nil {
			o.loop.Collector = c
		}
	}
}

// WithEngineConfig tunes the default net/http engine. Its logger comes from
// WithLogger. Ignored by NewWithEngine.
func WithEngineConfig(cfg engine.Config) Option {
	return func(o *options) {
		cfg.Logger = o.engine.Logger
		o.engine = cfg
	}
}
