// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error taxonomy for submission, delivery and per-transfer failures.

package api

import (
	"errors"
	"fmt"
)

var (
	// ErrLoopUnavailable is returned by Submit once the event loop has terminated
	// or the submitting handle has been closed. Retrying through the same handle is pointless.
	ErrLoopUnavailable = errors.New("transfer loop unavailable")

	// ErrChannelClosed is returned by a pending future when the loop dropped its
	// completion channel without delivering a result.
	ErrChannelClosed = errors.New("completion channel closed")

	// ErrEngineClosed is reported by an engine that can no longer be driven.
	ErrEngineClosed = errors.New("engine is closed")
)

// ErrorCode classifies engine-reported transfer failures.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeMalformedRequest
	ErrCodeUnsupportedProtocol
	ErrCodeResolveHost
	ErrCodeConnect
	ErrCodeTLS
	ErrCodeTimeout
	ErrCodeTooManyRedirects
	ErrCodeHTTPStatus
	ErrCodeWrite
	ErrCodeFileSizeExceeded
	ErrCodeAborted
	ErrCodeTransfer
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                  "ok",
	ErrCodeMalformedRequest:    "malformed_request",
	ErrCodeUnsupportedProtocol: "unsupported_protocol",
	ErrCodeResolveHost:         "resolve_host",
	ErrCodeConnect:             "connect",
	ErrCodeTLS:                 "tls",
	ErrCodeTimeout:             "timeout",
	ErrCodeTooManyRedirects:    "too_many_redirects",
	ErrCodeHTTPStatus:          "http_status",
	ErrCodeWrite:               "write",
	ErrCodeFileSizeExceeded:    "filesize_exceeded",
	ErrCodeAborted:             "aborted",
	ErrCodeTransfer:            "transfer",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// TransferError is a per-request failure. It is attached to the delivered
// outcome of one transfer and never affects other transfers.
type TransferError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

// Unwrap exposes the engine-specific cause unmodified.
func (e *TransferError) Unwrap() error { return e.Err }

// Is matches another *TransferError by code, so errors.Is(err, &TransferError{Code: ErrCodeTimeout}) works.
func (e *TransferError) Is(target error) bool {
	t, ok := target.(*TransferError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewTransferError creates a TransferError with the given code.
func NewTransferError(code ErrorCode, message string, cause error) *TransferError {
	return &TransferError{Code: code, Message: message, Err: cause}
}

// CodeOf extracts the ErrorCode carried by err, ErrCodeOK for nil and
// ErrCodeTransfer for errors that are not TransferErrors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te.Code
	}
	return ErrCodeTransfer
}
