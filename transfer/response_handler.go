// File: transfer/response_handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transfer

import "net/http"

// ResponseHandler accumulates the response body and header in memory.
type ResponseHandler struct {
	data   []byte
	header http.Header
}

// NewResponseHandler returns an empty handler.
func NewResponseHandler() *ResponseHandler {
	return &ResponseHandler{header: make(http.Header)}
}

// Write stores body bytes.
func (r *ResponseHandler) Write(p []byte) (int, error) {
	r.data = append(r.data, p...)
	return len(p), nil
}

// Header records a response header value.
func (r *ResponseHandler) Header(name, value string) {
	if r.header == nil {
		r.header = make(http.Header)
	}
	r.header.Add(name, value)
}

// Data returns the body received so far.
func (r *ResponseHandler) Data() []byte { return r.data }

// Take moves the body out of the handler.
func (r *ResponseHandler) Take() []byte {
	d := r.data
	r.data = nil
	return d
}

// Headers returns the captured response header.
func (r *ResponseHandler) Headers() http.Header { return r.header }
