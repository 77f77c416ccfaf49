package facade_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/facade"
	"github.com/momentics/hioload-http/transfer"
)

func testConfig() *control.Config {
	cfg := control.Default()
	cfg.Telemetry.Enabled = true
	cfg.ShutdownTimeout = control.Duration{Duration: 2 * time.Second}
	return cfg
}

func TestFacadeLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	h, err := facade.New(testConfig(), facade.WithLogger(zerolog.Nop()), facade.WithRegisterer(reg))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e, err := h.Get(ctx, srv.URL+"/ping")
	require.NoError(t, err)
	require.Equal(t, "pong", string(e.Handler().Data()))

	clone := h.Actor()
	e, err = clone.SendRequest(ctx, e)
	require.NoError(t, err)
	require.Equal(t, "pongpong", string(e.Handler().Data()))
	clone.Close()

	require.Eventually(t, func() bool { return h.Stats().Delivered == 2 }, time.Second, 5*time.Millisecond)
	dump := h.Probes().Dump()
	require.Contains(t, dump, "loop.stats")
	require.Contains(t, dump, "platform.cpus")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	require.NoError(t, h.Shutdown(context.Background()))
	require.NoError(t, h.Shutdown(context.Background()))
	_, err = h.Get(ctx, srv.URL)
	require.ErrorIs(t, err, facade.ErrShutdown)
}

func TestFacadeShutdownTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := control.Default()
	cfg.ShutdownTimeout = control.Duration{Duration: 50 * time.Millisecond}
	h, err := facade.New(cfg, facade.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	a := h.Actor()
	e := facadeGet(srv.URL)
	f, err := a.Submit(e)
	require.NoError(t, err)
	a.Close()
	require.Eventually(t, func() bool { return h.Stats().InFlight == 1 }, time.Second, 5*time.Millisecond)

	err = h.Shutdown(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, f)
}

func TestFacadeReload(t *testing.T) {
	h, err := facade.New(control.Default(), facade.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer h.Shutdown(context.Background())

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loop:\n  batch_size: 7\n"), 0o600))
	require.NoError(t, h.Reload(path))
	require.Equal(t, 7, h.Config().Loop.BatchSize)
	require.EqualValues(t, 1, h.Probes().Dump()["config.reloads"])

	a := h.NewActor()
	a.Close()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("independent actor did not stop")
	}
}

func TestFacadeRejectsInvalidConfig(t *testing.T) {
	cfg := control.Default()
	cfg.Logging.Format = "xml"
	_, err := facade.New(cfg)
	require.ErrorContains(t, err, "logging.format")
}

func facadeGet(url string) *transfer.Easy[facade.Handler] {
	e := transfer.New(transfer.NewResponseHandler())
	e.URL(url)
	return e
}
