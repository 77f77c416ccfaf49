// File: facade/hioload.go
// Unified facade layer for hioload-http.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HioloadHTTP wires the whole stack from one configuration: the logger, the
// metrics collector, the net/http engine behind its adapter, the transfer
// loop behind an actor, and the probe registry. It exposes simple request
// helpers and a bounded graceful shutdown.

package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-http/actor"
	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/engine"
	"github.com/momentics/hioload-http/internal/logging"
	"github.com/momentics/hioload-http/telemetry"
	"github.com/momentics/hioload-http/transfer"
)

// ErrShutdown is returned by requests issued after Shutdown.
var ErrShutdown = errors.New("facade: shut down")

// Handler is the response handler used by facade-created transfers.
type Handler = *transfer.ResponseHandler

// Option adjusts facade wiring.
type Option func(*settings)

type settings struct {
	logger     *zerolog.Logger
	registerer prometheus.Registerer
}

// WithLogger replaces the logger built from the logging section.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = &l }
}

// WithRegisterer registers metrics somewhere other than the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) { s.registerer = reg }
}

// HioloadHTTP is the main facade type.
type HioloadHTTP struct {
	store     *control.Store
	log       zerolog.Logger
	cleanup   func()
	collector telemetry.Collector
	probes    *control.Probes
	primary   *actor.Actor[Handler]
	reloads   atomic.Uint64
	shut      atomic.Bool

	once        sync.Once
	shutdownErr error
}

var _ api.GracefulShutdown = (*HioloadHTTP)(nil)

// New constructs the stack. A nil cfg selects control.Default.
func New(cfg *control.Config, opts ...Option) (*HioloadHTTP, error) {
	if cfg == nil {
		cfg = control.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	h := &HioloadHTTP{store: control.NewStore(cfg), cleanup: func() {}}
	if s.logger != nil {
		h.log = *s.logger
	} else {
		logger, cleanup, err := logging.Setup(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("logging init failure: %w", err)
		}
		h.log, h.cleanup = logger, cleanup
	}

	h.collector = telemetry.Noop()
	if cfg.Telemetry.Enabled && !strings.EqualFold(cfg.Telemetry.Provider, "noop") {
		pc, err := telemetry.NewPrometheusCollector(s.registerer, cfg.Telemetry.Namespace)
		if err != nil {
			h.cleanup()
			return nil, fmt.Errorf("telemetry init failure: %w", err)
		}
		h.collector = pc
	}

	h.primary = h.newActor(cfg)
	h.probes = control.NewProbes()
	control.RegisterPlatformProbes(h.probes)
	h.probes.Register("loop.stats", func() any { return h.primary.Stats() })
	h.probes.Register("config.reloads", func() any { return h.reloads.Load() })

	h.store.OnReload(func(c *control.Config) {
		h.reloads.Add(1)
		h.log.Info().Int("batch_size", c.Loop.BatchSize).Dur("poll_timeout", c.Loop.PollTimeout.Duration).
			Msg("configuration reloaded, new actors use it")
	})
	h.log.Info().Int("cpu", cfg.Loop.CPU).Bool("metrics", cfg.Telemetry.Enabled).Msg("hioload-http started")
	return h, nil
}

func (h *HioloadHTTP) newActor(cfg *control.Config) *actor.Actor[Handler] {
	return actor.New[Handler](
		actor.WithLogger(h.log),
		actor.WithCollector(h.collector),
		actor.WithBatchSize(cfg.Loop.BatchSize),
		actor.WithPollTimeout(cfg.Loop.PollTimeout.Duration),
		actor.WithCPU(cfg.Loop.CPU),
		actor.WithEngineConfig(EngineConfig(cfg.Engine)),
	)
}

// EngineConfig maps the engine section onto engine.Config.
func EngineConfig(c control.EngineConfig) engine.Config {
	return engine.Config{
		MaxIdleConns:        c.MaxIdleConns,
		MaxIdleConnsPerHost: c.MaxIdleConnsPerHost,
		MaxConnsPerHost:     c.MaxConnsPerHost,
		IdleConnTimeout:     c.IdleConnTimeout.Duration,
		UserAgent:           c.UserAgent,
		DisableCompression:  c.DisableCompression,
		MaxRedirects:        c.MaxRedirects,
	}
}

// Actor returns a new reference to the shared loop. The caller must Close it.
func (h *HioloadHTTP) Actor() *actor.Actor[Handler] {
	return h.primary.Clone()
}

// NewActor starts an independent loop from the current configuration.
// The caller owns it and must Close it.
func (h *HioloadHTTP) NewActor() *actor.Actor[Handler] {
	cfg := h.store.Snapshot()
	return h.newActor(&cfg)
}

// Get fetches url through the shared loop.
func (h *HioloadHTTP) Get(ctx context.Context, url string) (*transfer.Easy[Handler], error) {
	e := transfer.New(transfer.NewResponseHandler())
	e.URL(url)
	e.Get(true)
	return h.Do(ctx, e)
}

// Do performs a prepared transfer through the shared loop.
func (h *HioloadHTTP) Do(ctx context.Context, e *transfer.Easy[Handler]) (*transfer.Easy[Handler], error) {
	out, err := h.primary.SendRequest(ctx, e)
	if errors.Is(err, api.ErrLoopUnavailable) && h.shut.Load() {
		return nil, ErrShutdown
	}
	return out, err
}

// Stats returns the shared loop counters.
func (h *HioloadHTTP) Stats() actor.Stats {
	return h.primary.Stats()
}

// Probes exposes the probe registry.
func (h *HioloadHTTP) Probes() *control.Probes {
	return h.probes
}

// Config returns the active configuration.
func (h *HioloadHTTP) Config() control.Config {
	return h.store.Snapshot()
}

// Reload reads path and makes it the active configuration.
func (h *HioloadHTTP) Reload(path string) error {
	cfg, err := control.Load(path)
	if err != nil {
		return err
	}
	return h.store.Update(cfg)
}

// Logger returns the facade logger.
func (h *HioloadHTTP) Logger() zerolog.Logger {
	return h.log
}

// Shutdown releases the facade's loop reference and waits for the loop to
// drain, bounded by ctx and the configured shutdown timeout. Clones handed
// out by Actor keep the loop alive until they are closed.
func (h *HioloadHTTP) Shutdown(ctx context.Context) error {
	h.once.Do(func() {
		if d := h.store.Snapshot().ShutdownTimeout.Duration; d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		h.shut.Store(true)
		h.primary.Close()
		select {
		case <-h.primary.Done():
			if err := h.primary.Err(); err != nil {
				h.shutdownErr = fmt.Errorf("transfer loop fault: %w", err)
			}
			st := h.primary.Stats()
			h.log.Info().Uint64("delivered", st.Delivered).Uint64("discarded", st.Discarded).Msg("hioload-http stopped")
		case <-ctx.Done():
			h.shutdownErr = fmt.Errorf("shutdown: %w", ctx.Err())
			h.log.Warn().Int("in_flight", h.primary.Stats().InFlight).Msg("shutdown timed out with transfers in flight")
		}
		h.cleanup()
	})
	return h.shutdownErr
}
