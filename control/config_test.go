package control_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/control"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
loop:
  batch_size: 16
  poll_timeout: 5ms
engine:
  user_agent: probe/1
  idle_conn_timeout: 30s
logging:
  level: debug
  format: text
  outputs: [stdout]
shutdown_timeout: 2s
`)
	cfg, err := control.Load(path)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Loop.BatchSize)
	require.Equal(t, 5*time.Millisecond, cfg.Loop.PollTimeout.Duration)
	require.Equal(t, -1, cfg.Loop.CPU)
	require.Equal(t, "probe/1", cfg.Engine.UserAgent)
	require.Equal(t, 30*time.Second, cfg.Engine.IdleConnTimeout.Duration)
	require.Equal(t, 50, cfg.Engine.MaxRedirects)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, []string{"stdout"}, cfg.Logging.Outputs)
	require.Equal(t, 2*time.Second, cfg.ShutdownTimeout.Duration)
	require.Equal(t, "prometheus", cfg.Telemetry.Provider)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := control.Load(writeConfig(t, "loop:\n  poll_timeout: soon\n"))
	require.ErrorContains(t, err, "parse duration")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := control.Load(writeConfig(t, "loop:\n  batch_size: -1\nlogging:\n  format: xml\n"))
	require.ErrorContains(t, err, "batch_size")
	require.ErrorContains(t, err, "xml")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := control.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestStoreNotifiesListeners(t *testing.T) {
	s := control.NewStore(nil)
	var seen *control.Config
	s.OnReload(func(c *control.Config) { seen = c })

	next := control.Default()
	next.Loop.BatchSize = 8
	require.NoError(t, s.Update(next))
	require.Same(t, next, seen)
	require.Equal(t, 8, s.Snapshot().Loop.BatchSize)

	bad := control.Default()
	bad.Telemetry.Provider = "statsd"
	require.Error(t, s.Update(bad))
	require.Equal(t, 8, s.Snapshot().Loop.BatchSize)
}

func TestStoreListenersRunInOrder(t *testing.T) {
	s := control.NewStore(nil)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		s.OnReload(func(*control.Config) { order = append(order, i) })
	}
	require.NoError(t, s.Update(control.Default()))
	require.NoError(t, s.Update(control.Default()))
	require.Equal(t, []int{0, 1, 2, 0, 1, 2}, order)
}

func TestProbes(t *testing.T) {
	p := control.NewProbes()
	control.RegisterPlatformProbes(p)
	p.Register("custom", func() any { return 42 })

	dump := p.Dump()
	require.Equal(t, 42, dump["custom"])
	require.Positive(t, dump["platform.cpus"])
	require.Contains(t, p.Names(), "platform.os")

	p.Unregister("custom")
	require.NotContains(t, p.Dump(), "custom")
}
