// File: api/handler.go
// Package api defines the response handler contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Handler receives the response body of a transfer while the engine drives it.
// Returning n < len(p) or a non-nil error aborts the transfer with ErrCodeWrite.
type Handler interface {
	Write(p []byte) (n int, err error)
}

// HeaderHandler is optionally implemented by a Handler that wants the response
// header lines. Header is invoked once per header value before any body bytes.
type HeaderHandler interface {
	Header(name, value string)
}
