// File: engine/multi.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/pool"
)

type handleState int

const (
	handleAdded handleState = iota
	handleRunning
	handleDone
	handleRemoved
)

// Handle is one transfer attached to a Multi.
type Handle struct {
	transfer api.Transfer
	req      *http.Request
	added    time.Time
	state    handleState
	cancel   context.CancelFunc
}

// Transfer returns the transfer carried by h.
func (h *Handle) Transfer() api.Transfer { return h.transfer }

// Message reports a finished handle. Err is nil on success.
type Message struct {
	Handle *Handle
	Err    *api.TransferError
}

// Multi drives many HTTP transfers concurrently.
type Multi struct {
	cfg  Config
	log  zerolog.Logger
	bufs *pool.BytePool

	mu         sync.Mutex
	added      []*Handle
	running    map[*Handle]struct{}
	done       *queue.Queue
	transports map[transportKey]*http.Transport
	closed     bool

	signal chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMulti creates an engine with the given pool configuration.
func NewMulti(cfg Config) *Multi {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Multi{
		cfg:        cfg,
		log:        cfg.Logger.With().Str("component", "engine").Logger(),
		bufs:       pool.NewBytePool(cfg.CopyBufferSize),
		running:    make(map[*Handle]struct{}),
		done:       queue.New(),
		transports: make(map[transportKey]*http.Transport),
		signal:     make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Add validates t and queues it for the next Perform.
func (m *Multi) Add(t api.Transfer) (*Handle, error) {
	opts := t.Options()
	req, err := buildRequest(opts, m.cfg.UserAgent)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrMultiClosed
	}
	if _, err := m.transportFor(opts); err != nil {
		return nil, err
	}
	h := &Handle{transfer: t, req: req, added: time.Now()}
	m.added = append(m.added, h)
	return h, nil
}

// Perform starts every queued handle and returns the number still running.
func (m *Multi) Perform() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrMultiClosed
	}
	for i, h := range m.added {
		m.added[i] = nil
		if h.state != handleAdded {
			continue
		}
		tr := m.transports[keyFor(h.transfer.Options())]
		ctx, cancel := context.WithCancel(m.ctx)
		h.cancel = cancel
		h.state = handleRunning
		m.running[h] = struct{}{}
		m.wg.Add(1)
		go m.run(ctx, h, tr)
	}
	m.added = m.added[:0]
	return len(m.running), nil
}

// Wait blocks until a message is ready, wake fires, or timeout expires.
func (m *Multi) Wait(timeout time.Duration, wake <-chan struct{}) {
	m.mu.Lock()
	ready := m.done.Length() > 0
	m.mu.Unlock()
	if ready || timeout <= 0 {
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-m.signal:
	case <-wake:
	case <-timer.C:
	}
}

// InfoRead pops the next completion message.
func (m *Multi) InfoRead() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done.Length() == 0 {
		return Message{}, false
	}
	return m.done.Remove().(Message), true
}

// Remove detaches h. A handle still running is aborted and its message is dropped.
func (m *Multi) Remove(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.state == handleRunning && h.cancel != nil {
		h.cancel()
	}
	delete(m.running, h)
	h.state = handleRemoved
}

// Running returns the number of handles currently performing.
func (m *Multi) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// Close aborts all transfers, waits for them to unwind and drops idle connections.
func (m *Multi) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tr := range m.transports {
		tr.CloseIdleConnections()
	}
	m.running = make(map[*Handle]struct{})
	m.added = nil
	return nil
}

func (m *Multi) run(ctx context.Context, h *Handle, tr *http.Transport) {
	defer m.wg.Done()
	info := m.perform(ctx, h, tr)
	h.transfer.Complete(info)

	m.mu.Lock()
	if h.state == handleRemoved || m.closed {
		m.mu.Unlock()
		return
	}
	h.state = handleDone
	delete(m.running, h)
	m.done.Add(Message{Handle: h, Err: info.Err})
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// buildRequest validates the options and prepares the outgoing request.
func buildRequest(opts *api.TransferOptions, defaultUA string) (*http.Request, error) {
	if opts.URL == "" {
		return nil, api.NewTransferError(api.ErrCodeMalformedRequest, "no URL set", nil)
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, api.NewTransferError(api.ErrCodeMalformedRequest, "URL using bad/illegal format", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "":
		return nil, api.NewTransferError(api.ErrCodeMalformedRequest, "URL has no scheme", nil)
	default:
		return nil, api.NewTransferError(api.ErrCodeUnsupportedProtocol, "protocol \""+u.Scheme+"\" not supported", nil)
	}
	if u.Host == "" {
		return nil, api.NewTransferError(api.ErrCodeMalformedRequest, "no host part in the URL", nil)
	}
	if opts.Port > 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(opts.Port))
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body *bytes.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}
	var req *http.Request
	if body != nil {
		req, err = http.NewRequest(method, u.String(), body)
	} else {
		req, err = http.NewRequest(method, u.String(), http.NoBody)
	}
	if err != nil {
		return nil, api.NewTransferError(api.ErrCodeMalformedRequest, "invalid request", err)
	}

	req.Header = opts.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUA
	}
	req.Header.Set("User-Agent", ua)
	if opts.Username != "" || opts.Password != "" {
		req.SetBasicAuth(opts.Username, opts.Password)
	}
	if opts.Referer != "" {
		req.Header.Set("Referer", opts.Referer)
	}
	if opts.Cookie != "" {
		req.Header.Add("Cookie", opts.Cookie)
	}
	if opts.AcceptEncoding != "" {
		req.Header.Set("Accept-Encoding", opts.AcceptEncoding)
	}
	switch {
	case opts.Range != "":
		req.Header.Set("Range", "bytes="+opts.Range)
	case opts.ResumeFrom > 0:
		req.Header.Set("Range", "bytes="+strconv.FormatInt(opts.ResumeFrom, 10)+"-")
	}
	return req, nil
}
