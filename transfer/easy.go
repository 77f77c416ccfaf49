// File: transfer/easy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transfer

import (
	"errors"
	"net/http"
	"net/textproto"
	"time"

	"github.com/momentics/hioload-http/api"
)

// ErrNotPerformed is returned by accessors that need a completed transfer.
var ErrNotPerformed = errors.New("transfer: not performed yet")

var _ api.Transfer = (*Easy[api.Handler])(nil)

// Easy is a single transfer handle carrying a response handler of type H.
type Easy[H api.Handler] struct {
	opts      api.TransferOptions
	handler   H
	info      api.Info
	performed bool
}

// New creates a handle that writes the response body into h.
func New[H api.Handler](h H) *Easy[H] {
	return &Easy[H]{
		opts: api.TransferOptions{
			Header:          make(http.Header),
			MaxRedirections: -1,
		},
		handler: h,
	}
}

// Handler returns the response handler.
func (e *Easy[H]) Handler() H { return e.handler }

// ResponseCode returns the last received HTTP status code.
func (e *Easy[H]) ResponseCode() (int, error) {
	if !e.performed {
		return 0, ErrNotPerformed
	}
	return e.info.StatusCode, nil
}

// Info returns the engine-populated metadata. It is the zero Info until the transfer completed.
func (e *Easy[H]) Info() api.Info { return e.info }

// Err returns the transfer error recorded by the engine, if any.
func (e *Easy[H]) Err() error {
	if e.info.Err == nil {
		return nil
	}
	return e.info.Err
}

// Reset clears completion metadata so the handle can be submitted again.
func (e *Easy[H]) Reset() {
	e.info = api.Info{}
	e.performed = false
}

// Options implements api.Transfer.
func (e *Easy[H]) Options() *api.TransferOptions { return &e.opts }

// Sink implements api.Transfer.
func (e *Easy[H]) Sink() api.Handler { return e.handler }

// Complete implements api.Transfer.
func (e *Easy[H]) Complete(info api.Info) {
	e.info = info
	e.performed = true
}

// URL sets the target, scheme://host:port/path.
func (e *Easy[H]) URL(u string) { e.opts.URL = u }

// Port overrides the port number taken from the URL.
func (e *Easy[H]) Port(port uint16) { e.opts.Port = int(port) }

// Get switches the request method to GET.
func (e *Easy[H]) Get(enable bool) {
	if enable {
		e.opts.Method = http.MethodGet
		e.opts.NoBody = false
	}
}

// Post switches the request method to POST.
func (e *Easy[H]) Post(enable bool) {
	if enable {
		e.opts.Method = http.MethodPost
	}
}

// PostFields sets the request body and implies POST unless another method was chosen.
func (e *Easy[H]) PostFields(data []byte) {
	e.opts.Body = append([]byte(nil), data...)
	if e.opts.Method == "" || e.opts.Method == http.MethodGet {
		e.opts.Method = http.MethodPost
	}
}

// Put switches the request method to PUT.
func (e *Easy[H]) Put(enable bool) {
	if enable {
		e.opts.Method = http.MethodPut
	}
}

// Nobody issues a HEAD request and skips the body.
func (e *Easy[H]) Nobody(enable bool) {
	e.opts.NoBody = enable
	if enable {
		e.opts.Method = http.MethodHead
	}
}

// CustomRequest sets an arbitrary method verb.
func (e *Easy[H]) CustomRequest(method string) { e.opts.Method = method }

// HTTPHeader adds a request header value.
func (e *Easy[H]) HTTPHeader(name, value string) {
	e.opts.Header.Add(textproto.CanonicalMIMEHeaderKey(name), value)
}

// Timeout caps the whole transfer duration.
func (e *Easy[H]) Timeout(d time.Duration) { e.opts.Timeout = d }

// ConnectTimeout caps the connection phase.
func (e *Easy[H]) ConnectTimeout(d time.Duration) { e.opts.ConnectTimeout = d }

// FollowLocation makes the engine follow redirects.
func (e *Easy[H]) FollowLocation(enable bool) { e.opts.FollowLocation = enable }

// MaxRedirections caps followed redirects.
func (e *Easy[H]) MaxRedirections(n uint32) { e.opts.MaxRedirections = int(n) }

// Username sets the basic auth user name.
func (e *Easy[H]) Username(user string) { e.opts.Username = user }

// Password sets the basic auth password.
func (e *Easy[H]) Password(pass string) { e.opts.Password = pass }

// Proxy routes the transfer through the given proxy URL.
func (e *Easy[H]) Proxy(url string) { e.opts.Proxy = url }

// NoProxy lists comma separated hosts that bypass the proxy.
func (e *Easy[H]) NoProxy(skip string) { e.opts.NoProxy = skip }

// SSLVerifyPeer toggles certificate verification. Enabled by default.
func (e *Easy[H]) SSLVerifyPeer(verify bool) { e.opts.InsecureSkipVerify = !verify }

// UnixSocket connects through a Unix domain socket instead of TCP.
func (e *Easy[H]) UnixSocket(path string) { e.opts.UnixSocket = path }

// Range requests a byte range, for example "0-99".
func (e *Easy[H]) Range(r string) { e.opts.Range = r }

// ResumeFrom requests the body starting at the given offset.
func (e *Easy[H]) ResumeFrom(from uint64) { e.opts.ResumeFrom = int64(from) }

// MaxFileSize aborts transfers larger than size bytes.
func (e *Easy[H]) MaxFileSize(size uint64) { e.opts.MaxFileSize = int64(size) }

// FailOnError turns HTTP responses >= 400 into transfer errors.
func (e *Easy[H]) FailOnError(fail bool) { e.opts.FailOnError = fail }

// ShowHeader streams the response header into the body handler.
func (e *Easy[H]) ShowHeader(show bool) { e.opts.ShowHeader = show }

// Verbose logs the transfer lifecycle at debug level.
func (e *Easy[H]) Verbose(verbose bool) { e.opts.Verbose = verbose }

// UserAgent sets the User-Agent header.
func (e *Easy[H]) UserAgent(ua string) { e.opts.UserAgent = ua }

// Referer sets the Referer header.
func (e *Easy[H]) Referer(ref string) { e.opts.Referer = ref }

// Cookie sets the Cookie header, "name=value; other=value".
func (e *Easy[H]) Cookie(cookie string) { e.opts.Cookie = cookie }

// AcceptEncoding sets Accept-Encoding; the engine does not decode custom encodings.
func (e *Easy[H]) AcceptEncoding(encoding string) { e.opts.AcceptEncoding = encoding }
