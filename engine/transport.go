// File: engine/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/momentics/hioload-http/api"
)

// transportKey groups transfers that can share a connection pool.
type transportKey struct {
	proxy          string
	noProxy        string
	insecure       bool
	connectTimeout time.Duration
	unixSocket     string
}

func keyFor(opts *api.TransferOptions) transportKey {
	return transportKey{
		proxy:          opts.Proxy,
		noProxy:        opts.NoProxy,
		insecure:       opts.InsecureSkipVerify,
		connectTimeout: opts.ConnectTimeout,
		unixSocket:     opts.UnixSocket,
	}
}

// transportFor returns the pooled transport for the options' network profile.
// Caller holds m.mu.
func (m *Multi) transportFor(opts *api.TransferOptions) (*http.Transport, error) {
	key := keyFor(opts)
	if tr, ok := m.transports[key]; ok {
		return tr, nil
	}
	tr, err := m.newTransport(key)
	if err != nil {
		return nil, err
	}
	m.transports[key] = tr
	return tr, nil
}

func (m *Multi) newTransport(key transportKey) (*http.Transport, error) {
	dialer := &net.Dialer{Timeout: key.connectTimeout, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          m.cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   m.cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       m.cfg.MaxConnsPerHost,
		IdleConnTimeout:       m.cfg.IdleConnTimeout,
		DisableCompression:    m.cfg.DisableCompression,
		TLSHandshakeTimeout:   key.connectTimeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	if key.insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per transfer
	}
	if key.unixSocket != "" {
		path := key.unixSocket
		tr.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", path)
		}
	}

	switch {
	case key.proxy != "":
		proxyURL, err := url.Parse(withScheme(key.proxy))
		if err != nil {
			return nil, api.NewTransferError(api.ErrCodeMalformedRequest, "invalid proxy URL", err)
		}
		bypass := splitNoProxy(key.noProxy)
		tr.Proxy = func(req *http.Request) (*url.URL, error) {
			if bypassed(req.URL.Hostname(), bypass) {
				return nil, nil
			}
			return proxyURL, nil
		}
	case key.noProxy == "*":
		tr.Proxy = nil
	default:
		tr.Proxy = http.ProxyFromEnvironment
	}
	return tr, nil
}

func withScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

func splitNoProxy(list string) []string {
	var out []string
	for _, h := range strings.Split(list, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, strings.ToLower(h))
		}
	}
	return out
}

// bypassed reports whether host matches a no-proxy entry, either exactly or as a domain suffix.
func bypassed(host string, list []string) bool {
	host = strings.ToLower(host)
	for _, h := range list {
		if h == "*" || host == strings.TrimPrefix(h, ".") {
			return true
		}
		if strings.HasSuffix(host, "."+strings.TrimPrefix(h, ".")) {
			return true
		}
	}
	return false
}
