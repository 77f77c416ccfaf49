// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Logger construction from configuration: level, format, stdout/stderr or
// rotated files, and an optional Loki sink.

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/momentics/hioload-http/control"
)

// Setup creates a zerolog logger according to the provided configuration.
// The returned cleanup flushes and closes file and Loki sinks.
func Setup(cfg control.LoggingConfig) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}
	text := strings.EqualFold(cfg.Format, "text")

	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	var (
		writers []io.Writer
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, out := range outputs {
		switch strings.ToLower(out) {
		case "stdout":
			writers = append(writers, console(os.Stdout, text))
		case "stderr":
			writers = append(writers, console(os.Stderr, text))
		default:
			w, closeFn, err := fileWriter(out, cfg.Rotation)
			if err != nil {
				cleanup()
				return zerolog.Logger{}, nil, err
			}
			writers = append(writers, w)
			closers = append(closers, closeFn)
		}
	}

	if cfg.Loki.Enabled {
		lokiWriter, closeFn, err := newLokiWriter(cfg.Loki)
		if err != nil {
			cleanup()
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, lokiWriter)
		closers = append(closers, closeFn)
	}

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).With().Timestamp().Logger().Level(level)
	return logger, cleanup, nil
}

func console(w io.Writer, text bool) io.Writer {
	if text {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return w
}

func fileWriter(path string, rot control.RotationConfig) (io.Writer, func(), error) {
	if rot.Enable {
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    max(rot.MaxSizeMB, 10),
			MaxBackups: max(rot.MaxBackups, 1),
			MaxAge:     max(rot.MaxAgeDays, 7),
			Compress:   rot.Compress,
		}
		return lj, func() { _ = lj.Close() }, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func newLokiWriter(cfg control.LokiConfig) (io.Writer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}

	labels := model.LabelSet{}
	for k, v := range cfg.Labels {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	if len(labels) == 0 {
		labels["app"] = "hioload-http"
	}

	writer := &lokiWriter{client: client, labels: labels}
	return writer, client.Stop, nil
}

type lokiWriter struct {
	client *loki.Client
	labels model.LabelSet
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	err := l.client.Handle(l.labels, time.Now(), entry)
	return len(p), err
}
