// File: engine/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxRedirects        = 50
	DefaultMaxIdleConns        = 256
	DefaultMaxIdleConnsPerHost = 16
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultUserAgent           = "hioload-http/1.0"
)

// Config tunes connection pooling and request defaults shared by all transfers.
type Config struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	// MaxConnsPerHost caps concurrent connections per host, 0 means unlimited.
	MaxConnsPerHost    int
	IdleConnTimeout    time.Duration
	UserAgent          string
	DisableCompression bool
	// MaxRedirects applies when a transfer leaves its own cap negative.
	MaxRedirects   int
	CopyBufferSize int
	Logger         zerolog.Logger
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		UserAgent:           DefaultUserAgent,
		MaxRedirects:        DefaultMaxRedirects,
		Logger:              zerolog.Nop(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = d.IdleConnTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = d.MaxRedirects
	}
	return c
}
