// File: engine/perform.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sort"
	"sync"
	"time"

	"github.com/momentics/hioload-http/api"
)

// perform runs one transfer to completion and returns its metadata.
func (m *Multi) perform(ctx context.Context, h *Handle, tr *http.Transport) api.Info {
	opts := h.transfer.Options()
	start := time.Now()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	rec := &traceRecorder{start: start}
	req := h.req.WithContext(httptrace.WithClientTrace(ctx, rec.clientTrace()))

	redirects := 0
	client := &http.Client{
		Transport: tr,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if !opts.FollowLocation {
				return http.ErrUseLastResponse
			}
			limit := opts.MaxRedirections
			if limit < 0 {
				limit = m.cfg.MaxRedirects
			}
			if len(via) > limit {
				return errTooManyRedirects
			}
			redirects = len(via)
			return nil
		},
	}

	info := api.Info{EffectiveURL: req.URL.String()}
	finish := func() api.Info {
		info.RedirectCount = redirects
		info.Timing = rec.timing(start.Sub(h.added), time.Since(start))
		if opts.Verbose {
			ev := m.log.Debug().Str("url", info.EffectiveURL).Int("status", info.StatusCode).
				Int64("bytes", info.BytesReceived).Dur("total", info.Timing.Total)
			if info.Err != nil {
				ev = ev.Str("code", info.Err.Code.String())
			}
			ev.Msg("transfer finished")
		}
		return info
	}

	resp, err := client.Do(req)
	if err != nil {
		info.Err = classify(err)
		return finish()
	}
	defer resp.Body.Close()

	info.StatusCode = resp.StatusCode
	info.Proto = resp.Proto
	info.Header = resp.Header
	if resp.Request != nil && resp.Request.URL != nil {
		info.EffectiveURL = resp.Request.URL.String()
	}

	if opts.FailOnError && resp.StatusCode >= 400 {
		info.Err = api.NewTransferError(api.ErrCodeHTTPStatus,
			fmt.Sprintf("the requested URL returned error: %d", resp.StatusCode), nil)
		return finish()
	}

	sink := h.transfer.Sink()
	deliverHeaders(sink, resp.Header)
	if opts.ShowHeader {
		if err := writeHeaderBlock(sink, resp); err != nil {
			info.Err = err
			return finish()
		}
	}

	if opts.MaxFileSize > 0 && resp.ContentLength > opts.MaxFileSize {
		info.Err = classify(errFileSize)
		return finish()
	}
	if opts.NoBody || req.Method == http.MethodHead {
		return finish()
	}

	n, err := m.copyBody(sink, resp.Body, opts.MaxFileSize)
	info.BytesReceived = n
	if err != nil {
		info.Err = classify(err)
	}
	return finish()
}

func deliverHeaders(sink api.Handler, header http.Header) {
	hh, ok := sink.(api.HeaderHandler)
	if !ok {
		return
	}
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range header[name] {
			hh.Header(name, v)
		}
	}
}

func writeHeaderBlock(sink api.Handler, resp *http.Response) *api.TransferError {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s\r\n", resp.Proto, resp.Status)
	_ = resp.Header.Write(&buf)
	buf.WriteString("\r\n")
	if n, err := sink.Write(buf.Bytes()); err != nil || n != buf.Len() {
		return api.NewTransferError(api.ErrCodeWrite, "failed writing header to handler", err)
	}
	return nil
}

// copyBody streams body into sink through a pooled buffer, enforcing limit when positive.
func (m *Multi) copyBody(sink api.Handler, body io.Reader, limit int64) (int64, error) {
	bp := m.bufs.GetBuffer()
	defer m.bufs.PutBuffer(bp)
	buf := *bp

	var total int64
	for {
		nr, rerr := body.Read(buf)
		if nr > 0 {
			if limit > 0 && total+int64(nr) > limit {
				return total, errFileSize
			}
			nw, werr := sink.Write(buf[:nr])
			total += int64(nw)
			if werr != nil || nw != nr {
				return total, api.NewTransferError(api.ErrCodeWrite, "failed writing received data to handler", werr)
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// traceRecorder collects phase timestamps; callbacks may fire from several goroutines.
type traceRecorder struct {
	start time.Time

	mu        sync.Mutex
	dnsDone   time.Time
	connDone  time.Time
	tlsDone   time.Time
	firstByte time.Time
}

func (r *traceRecorder) mark(t *time.Time) {
	r.mu.Lock()
	if t.IsZero() {
		*t = time.Now()
	}
	r.mu.Unlock()
}

func (r *traceRecorder) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSDone: func(httptrace.DNSDoneInfo) { r.mark(&r.dnsDone) },
		ConnectDone: func(_, _ string, err error) {
			if err == nil {
				r.mark(&r.connDone)
			}
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err == nil {
				r.mark(&r.tlsDone)
			}
		},
		GotFirstResponseByte: func() { r.mark(&r.firstByte) },
	}
}

func (r *traceRecorder) timing(queued, total time.Duration) api.Timing {
	r.mu.Lock()
	defer r.mu.Unlock()
	since := func(t time.Time) time.Duration {
		if t.IsZero() {
			return 0
		}
		return t.Sub(r.start)
	}
	return api.Timing{
		Queued:        queued,
		NameLookup:    since(r.dnsDone),
		Connect:       since(r.connDone),
		TLSHandshake:  since(r.tlsDone),
		StartTransfer: since(r.firstByte),
		Total:         total,
	}
}
