package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/logging"
)

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "loop.log")
	logger, cleanup, err := logging.Setup(control.LoggingConfig{
		Level:   "debug",
		Format:  "json",
		Outputs: []string{path},
	})
	require.NoError(t, err)

	logger.Debug().Str("component", "test").Msg("hello")
	cleanup()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "debug", line["level"])
	require.Equal(t, "test", line["component"])
}

func TestSetupRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, cleanup, err := logging.Setup(control.LoggingConfig{Level: "warn", Outputs: []string{path}})
	require.NoError(t, err)
	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")
	cleanup()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "dropped")
	require.Contains(t, string(raw), "kept")
}

func TestSetupRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.log")
	logger, cleanup, err := logging.Setup(control.LoggingConfig{
		Outputs:  []string{path},
		Rotation: control.RotationConfig{Enable: true, MaxSizeMB: 1},
	})
	require.NoError(t, err)
	logger.Info().Msg("rotating")
	cleanup()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "rotating")
}

func TestSetupRejectsBadLevel(t *testing.T) {
	_, _, err := logging.Setup(control.LoggingConfig{Level: "loud"})
	require.ErrorContains(t, err, "parse log level")
}

func TestSetupLokiNeedsURL(t *testing.T) {
	_, _, err := logging.Setup(control.LoggingConfig{Loki: control.LokiConfig{Enabled: true}})
	require.ErrorContains(t, err, "loki url is required")
}
