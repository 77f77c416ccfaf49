package telemetry_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/telemetry"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestPrometheusCollectorRecordsLoopEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := telemetry.NewPrometheusCollector(reg, "test")
	require.NoError(t, err)

	c.IncSubmitted()
	c.IncSubmitted()
	c.IncRegistrationFailed()
	c.IncDelivered("ok")
	c.IncDelivered("timeout")
	c.IncDelivered("ok")
	c.IncDiscarded()
	c.IncChannelClosed(3)
	c.IncChannelClosed(0)
	c.IncLoopFault()
	c.SetInFlight(5)
	c.ObserveTransfer("ok", 20*time.Millisecond)

	mf := gather(t, reg)
	require.Equal(t, 2.0, mf["test_transfers_submitted_total"].GetMetric()[0].GetCounter().GetValue())
	require.Equal(t, 1.0, mf["test_transfers_registration_failed_total"].GetMetric()[0].GetCounter().GetValue())
	require.Equal(t, 3.0, mf["test_completion_channels_closed_total"].GetMetric()[0].GetCounter().GetValue())
	require.Equal(t, 5.0, mf["test_transfers_in_flight"].GetMetric()[0].GetGauge().GetValue())

	delivered := map[string]float64{}
	for _, m := range mf["test_transfers_delivered_total"].GetMetric() {
		delivered[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	require.Equal(t, map[string]float64{"ok": 2, "timeout": 1}, delivered)

	hist := mf["test_transfer_duration_seconds"].GetMetric()[0].GetHistogram()
	require.EqualValues(t, 1, hist.GetSampleCount())
}

func TestPrometheusCollectorSharedPerRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := telemetry.NewPrometheusCollector(reg, "")
	require.NoError(t, err)
	b, err := telemetry.NewPrometheusCollector(reg, "")
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestPrometheusCollectorConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clash",
		Name:      "transfers_submitted_total",
		Help:      "pre-existing",
	}))
	_, err := telemetry.NewPrometheusCollector(reg, "clash")
	require.ErrorContains(t, err, "register loop metrics")
}

func TestNoopCollector(t *testing.T) {
	c := telemetry.Noop()
	c.IncSubmitted()
	c.IncDelivered("ok")
	c.ObserveTransfer("ok", time.Second)
}
