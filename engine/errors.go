// File: engine/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package engine

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"

	"github.com/momentics/hioload-http/api"
)

var (
	errTooManyRedirects = errors.New("maximum redirects followed")
	errFileSize         = errors.New("maximum file size exceeded")
	// ErrMultiClosed is returned by Add after Close.
	ErrMultiClosed = errors.New("engine: multi handle closed")
)

// classify maps a net/http failure onto a transfer error code.
func classify(err error) *api.TransferError {
	var te *api.TransferError
	if errors.As(err, &te) {
		return te
	}

	var (
		dnsErr    *net.DNSError
		opErr     *net.OpError
		netErr    net.Error
		verifyErr *tls.CertificateVerificationError
		recordErr tls.RecordHeaderError
		authErr   x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		certErr   x509.CertificateInvalidError
	)
	switch {
	case errors.Is(err, errTooManyRedirects):
		return api.NewTransferError(api.ErrCodeTooManyRedirects, "maximum redirects followed", err)
	case errors.Is(err, errFileSize):
		return api.NewTransferError(api.ErrCodeFileSizeExceeded, "maximum file size exceeded", err)
	case errors.Is(err, context.DeadlineExceeded):
		return api.NewTransferError(api.ErrCodeTimeout, "operation timed out", err)
	case errors.Is(err, context.Canceled):
		return api.NewTransferError(api.ErrCodeAborted, "transfer aborted", err)
	case errors.As(err, &dnsErr):
		return api.NewTransferError(api.ErrCodeResolveHost, fmt.Sprintf("could not resolve host: %s", dnsErr.Name), err)
	case errors.As(err, &verifyErr), errors.As(err, &recordErr),
		errors.As(err, &authErr), errors.As(err, &hostErr), errors.As(err, &certErr):
		return api.NewTransferError(api.ErrCodeTLS, "TLS handshake failed", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return api.NewTransferError(api.ErrCodeTimeout, "operation timed out", err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return api.NewTransferError(api.ErrCodeConnect, "failed to connect", err)
	default:
		return api.NewTransferError(api.ErrCodeTransfer, "transfer failed", err)
	}
}
