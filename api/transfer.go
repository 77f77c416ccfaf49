// File: api/transfer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Engine-facing view of a transfer handle: what to fetch, where to write the
// body and where to record the outcome.

package api

import (
	"net/http"
	"time"
)

// Transfer is implemented by transfer handles. Exactly one execution context
// may use a Transfer at any instant; the engine owns it between registration
// and completion.
type Transfer interface {
	// Options returns the request description configured by the caller.
	Options() *TransferOptions
	// Sink returns the response handler that receives body bytes.
	Sink() Handler
	// Complete records engine-populated metadata once the transfer finished.
	Complete(info Info)
}

// TransferOptions describes one request. Fields left at their zero value mean
// "engine default".
type TransferOptions struct {
	URL    string
	Method string
	Header http.Header
	Body   []byte

	// Port overrides the port from URL when non-zero.
	Port int

	Timeout        time.Duration
	ConnectTimeout time.Duration

	FollowLocation bool
	// MaxRedirections caps followed redirects; negative means engine maximum.
	MaxRedirections int

	Username string
	Password string

	Proxy   string
	NoProxy string

	// InsecureSkipVerify disables peer certificate verification.
	InsecureSkipVerify bool
	UnixSocket         string

	Range      string
	ResumeFrom int64

	// MaxFileSize aborts the transfer once more than this many body bytes are
	// announced or received. Zero disables the check.
	MaxFileSize int64

	FailOnError bool
	ShowHeader  bool
	NoBody      bool
	Verbose     bool

	UserAgent      string
	Referer        string
	Cookie         string
	AcceptEncoding string
}

// Clone returns a deep copy of the options.
func (o *TransferOptions) Clone() *TransferOptions {
	c := *o
	c.Header = o.Header.Clone()
	if o.Body != nil {
		c.Body = append([]byte(nil), o.Body...)
	}
	return &c
}

// Timing holds phase durations measured from the moment the engine started the transfer.
type Timing struct {
	Queued        time.Duration
	NameLookup    time.Duration
	Connect       time.Duration
	TLSHandshake  time.Duration
	StartTransfer time.Duration
	Total         time.Duration
}

// Info is the engine-populated outcome metadata of a transfer.
type Info struct {
	StatusCode    int
	Proto         string
	Header        http.Header
	EffectiveURL  string
	RedirectCount int
	BytesReceived int64
	Timing        Timing
	Err           *TransferError
}
