// File: telemetry/telemetry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures events emitted by the transfer loop.
//
// Hooks run inline on the loop goroutine, so implementations must not block.
type Collector interface {
	IncSubmitted()
	IncRegistrationFailed()
	IncDelivered(outcome string)
	IncDiscarded()
	IncChannelClosed(n int)
	IncLoopFault()
	SetInFlight(n int)
	ObserveTransfer(outcome string, d time.Duration)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncSubmitted()                          {}
func (noopCollector) IncRegistrationFailed()                 {}
func (noopCollector) IncDelivered(string)                    {}
func (noopCollector) IncDiscarded()                          {}
func (noopCollector) IncChannelClosed(int)                   {}
func (noopCollector) IncLoopFault()                          {}
func (noopCollector) SetInFlight(int)                        {}
func (noopCollector) ObserveTransfer(string, time.Duration) {}

// PrometheusCollector exposes loop telemetry via Prometheus.
type PrometheusCollector struct {
	submitted      prometheus.Counter
	regFailed      prometheus.Counter
	delivered      *prometheus.CounterVec
	discarded      prometheus.Counter
	channelClosed  prometheus.Counter
	loopFaults     prometheus.Counter
	inFlight       prometheus.Gauge
	transferSecond *prometheus.HistogramVec
}

var (
	sharedMu        sync.Mutex
	sharedCollector = map[prometheus.Registerer]*PrometheusCollector{}
)

// NewPrometheusCollector registers the loop metrics with reg, or with the
// default registerer when reg is nil. Calling it again with the same
// registerer returns the collector created first.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "hioload_http"
	}
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if existing, ok := sharedCollector[reg]; ok {
		return existing, nil
	}

	pc := &PrometheusCollector{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_submitted_total",
			Help:      "Transfers accepted by the request queue.",
		}),
		regFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_registration_failed_total",
			Help:      "Transfers rejected by the engine at registration.",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_delivered_total",
			Help:      "Outcomes delivered to waiting callers, by outcome.",
		}, []string{"outcome"}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_discarded_total",
			Help:      "Finished transfers whose caller had abandoned the wait.",
		}),
		channelClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_channels_closed_total",
			Help:      "Completion channels closed without a result after a loop fault.",
		}),
		loopFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_faults_total",
			Help:      "Engine faults that terminated a transfer loop.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transfers_in_flight",
			Help:      "Transfers currently registered with the engine.",
		}),
		transferSecond: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Time from submission to delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{
		pc.submitted, pc.regFailed, pc.delivered, pc.discarded,
		pc.channelClosed, pc.loopFaults, pc.inFlight, pc.transferSecond,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register loop metrics: %w", err)
		}
	}
	sharedCollector[reg] = pc
	return pc, nil
}

func (p *PrometheusCollector) IncSubmitted() { p.submitted.Inc() }

func (p *PrometheusCollector) IncRegistrationFailed() { p.regFailed.Inc() }

// IncDelivered counts one delivered outcome, "ok" or an api.ErrorCode name.
func (p *PrometheusCollector) IncDelivered(outcome string) {
	p.delivered.WithLabelValues(outcome).Inc()
}

func (p *PrometheusCollector) IncDiscarded() { p.discarded.Inc() }

func (p *PrometheusCollector) IncChannelClosed(n int) {
	if n <= 0 {
		return
	}
	p.channelClosed.Add(float64(n))
}

func (p *PrometheusCollector) IncLoopFault() { p.loopFaults.Inc() }

func (p *PrometheusCollector) SetInFlight(n int) { p.inFlight.Set(float64(n)) }

func (p *PrometheusCollector) ObserveTransfer(outcome string, d time.Duration) {
	p.transferSecond.WithLabelValues(outcome).Observe(d.Seconds())
}
