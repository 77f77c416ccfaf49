// control/config.go
// Author: momentics <momentics@gmail.com>
//
// YAML configuration for the transfer stack and a thread-safe snapshot store.

package control

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "50ms" or "5s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// LoopConfig tunes the transfer loop.
type LoopConfig struct {
	BatchSize   int      `yaml:"batch_size"`
	PollTimeout Duration `yaml:"poll_timeout"`
	// CPU pins the loop thread when >= 0.
	CPU int `yaml:"cpu"`
}

// EngineConfig tunes the net/http engine.
type EngineConfig struct {
	MaxIdleConns        int      `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int      `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int      `yaml:"max_conns_per_host"`
	IdleConnTimeout     Duration `yaml:"idle_conn_timeout"`
	UserAgent           string   `yaml:"user_agent"`
	DisableCompression  bool     `yaml:"disable_compression"`
	MaxRedirects        int      `yaml:"max_redirects"`
}

// RotationConfig controls file log rotation.
type RotationConfig struct {
	Enable     bool `yaml:"enable"`
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level    string         `yaml:"level"`
	Format   string         `yaml:"format"`
	Outputs  []string       `yaml:"outputs"`
	Rotation RotationConfig `yaml:"rotation"`
	Loki     LokiConfig     `yaml:"loki"`
}

// TelemetryConfig selects the metrics backend.
type TelemetryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Provider  string `yaml:"provider"`
	Namespace string `yaml:"namespace"`
}

// Config is the root configuration structure.
type Config struct {
	Loop            LoopConfig      `yaml:"loop"`
	Engine          EngineConfig    `yaml:"engine"`
	Logging         LoggingConfig   `yaml:"logging"`
	Telemetry       TelemetryConfig `yaml:"telemetry"`
	ShutdownTimeout Duration        `yaml:"shutdown_timeout"`
}

// Default returns a configuration that runs without a config file.
func Default() *Config {
	return &Config{
		Loop: LoopConfig{
			BatchSize:   64,
			PollTimeout: Duration{50 * time.Millisecond},
			CPU:         -1,
		},
		Engine: EngineConfig{
			MaxIdleConns:        256,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     Duration{90 * time.Second},
			MaxRedirects:        50,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "json",
			Outputs: []string{"stderr"},
		},
		Telemetry: TelemetryConfig{
			Provider:  "prometheus",
			Namespace: "hioload_http",
		},
		ShutdownTimeout: Duration{10 * time.Second},
	}
}

// Load reads and decodes the configuration file over the defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the loop or engine cannot honour.
func (c *Config) Validate() error {
	var errs []error
	if c.Loop.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("loop.batch_size must not be negative"))
	}
	if c.Loop.PollTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("loop.poll_timeout must not be negative"))
	}
	if c.Engine.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("engine.max_redirects must not be negative"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not json or text", c.Logging.Format))
	}
	switch strings.ToLower(c.Telemetry.Provider) {
	case "", "prometheus", "noop":
	default:
		errs = append(errs, fmt.Errorf("telemetry.provider %q is not supported", c.Telemetry.Provider))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Store holds the active configuration and notifies listeners on change.
type Store struct {
	mu        sync.RWMutex
	cfg       *Config
	listeners []func(*Config)
}

// NewStore initializes a store with cfg, or Default when cfg is nil.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{cfg: cfg}
}

// Snapshot returns a copy of the active configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := *s.cfg
	out.Logging.Outputs = append([]string(nil), s.cfg.Logging.Outputs...)
	return out
}

// Update validates and installs cfg, then runs listeners synchronously.
func (s *Store) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	listeners := append([](func(*Config))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// OnReload registers a listener called after every successful Update.
func (s *Store) OnReload(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
