// File: client/builder.go
// Package client provides a fluent builder over transfer handles that
// performs through an actor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Builder collects options for one request. Setters are chainable and the
// first invalid input is remembered and reported by Finalize, so a chain
// never needs intermediate error checks.

package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/momentics/hioload-http/actor"
	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/transfer"
)

var (
	// ErrInvalidHeader is returned for header lines that are not "Name: value".
	ErrInvalidHeader = errors.New("client: invalid header line")
	// ErrInvalidURL is returned when the target cannot be parsed.
	ErrInvalidURL = errors.New("client: invalid URL")
)

// Builder configures a single transfer.
type Builder[H api.Handler] struct {
	actor *actor.Actor[H]
	easy  *transfer.Easy[H]
	err   error
}

// New starts a builder whose response body goes to h.
func New[H api.Handler](a *actor.Actor[H], h H) *Builder[H] {
	return &Builder[H]{actor: a, easy: transfer.New(h)}
}

func (b *Builder[H]) fail(err error) *Builder[H] {
	if b.err == nil {
		b.err = err
	}
	return b
}

// URL sets the target. Only a parse check happens here.
func (b *Builder[H]) URL(raw string) *Builder[H] {
	if _, err := url.Parse(raw); err != nil {
		return b.fail(fmt.Errorf("%w: %v", ErrInvalidURL, err))
	}
	b.easy.URL(raw)
	return b
}

func (b *Builder[H]) Port(port uint16) *Builder[H] { b.easy.Port(port); return b }

func (b *Builder[H]) Get(enable bool) *Builder[H] { b.easy.Get(enable); return b }

func (b *Builder[H]) Post(enable bool) *Builder[H] { b.easy.Post(enable); return b }

func (b *Builder[H]) PostFields(data []byte) *Builder[H] { b.easy.PostFields(data); return b }

func (b *Builder[H]) Put(enable bool) *Builder[H] { b.easy.Put(enable); return b }

func (b *Builder[H]) Nobody(enable bool) *Builder[H] { b.easy.Nobody(enable); return b }

func (b *Builder[H]) CustomRequest(method string) *Builder[H] {
	b.easy.CustomRequest(method)
	return b
}

// Header adds a single request header.
func (b *Builder[H]) Header(name, value string) *Builder[H] {
	b.easy.HTTPHeader(name, value)
	return b
}

// HTTPHeaders adds curl-style header lines such as "Accept: */*".
func (b *Builder[H]) HTTPHeaders(lines []string) *Builder[H] {
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return b.fail(fmt.Errorf("%w: %q", ErrInvalidHeader, line))
		}
		b.easy.HTTPHeader(name, strings.TrimSpace(value))
	}
	return b
}

func (b *Builder[H]) Timeout(d time.Duration) *Builder[H] { b.easy.Timeout(d); return b }

func (b *Builder[H]) ConnectTimeout(d time.Duration) *Builder[H] {
	b.easy.ConnectTimeout(d)
	return b
}

func (b *Builder[H]) FollowLocation(enable bool) *Builder[H] {
	b.easy.FollowLocation(enable)
	return b
}

func (b *Builder[H]) MaxRedirections(n uint32) *Builder[H] {
	b.easy.MaxRedirections(n)
	return b
}

func (b *Builder[H]) Username(user string) *Builder[H] { b.easy.Username(user); return b }

func (b *Builder[H]) Password(pass string) *Builder[H] { b.easy.Password(pass); return b }

func (b *Builder[H]) Proxy(u string) *Builder[H] { b.easy.Proxy(u); return b }

func (b *Builder[H]) NoProxy(skip string) *Builder[H] { b.easy.NoProxy(skip); return b }

func (b *Builder[H]) SSLVerifyPeer(verify bool) *Builder[H] {
	b.easy.SSLVerifyPeer(verify)
	return b
}

func (b *Builder[H]) UnixSocket(path string) *Builder[H] { b.easy.UnixSocket(path); return b }

func (b *Builder[H]) Range(r string) *Builder[H] { b.easy.Range(r); return b }

func (b *Builder[H]) ResumeFrom(from uint64) *Builder[H] { b.easy.ResumeFrom(from); return b }

func (b *Builder[H]) MaxFileSize(size uint64) *Builder[H] { b.easy.MaxFileSize(size); return b }

func (b *Builder[H]) FailOnError(fail bool) *Builder[H] { b.easy.FailOnError(fail); return b }

func (b *Builder[H]) ShowHeader(show bool) *Builder[H] { b.easy.ShowHeader(show); return b }

func (b *Builder[H]) Verbose(verbose bool) *Builder[H] { b.easy.Verbose(verbose); return b }

func (b *Builder[H]) UserAgent(ua string) *Builder[H] { b.easy.UserAgent(ua); return b }

func (b *Builder[H]) Referer(ref string) *Builder[H] { b.easy.Referer(ref); return b }

func (b *Builder[H]) Cookie(cookie string) *Builder[H] { b.easy.Cookie(cookie); return b }

func (b *Builder[H]) AcceptEncoding(enc string) *Builder[H] {
	b.easy.AcceptEncoding(enc)
	return b
}

// Finalize ends the build phase. It reports the first setter error.
func (b *Builder[H]) Finalize() (*Request[H], error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.actor == nil {
		return nil, api.ErrLoopUnavailable
	}
	return &Request[H]{actor: b.actor, easy: b.easy}, nil
}

// Request is a finalized transfer ready to perform.
type Request[H api.Handler] struct {
	actor *actor.Actor[H]
	easy  *transfer.Easy[H]
}

// Perform submits the transfer and waits for it. On a per-request failure
// the handle is returned together with the error.
func (r *Request[H]) Perform(ctx context.Context) (*transfer.Easy[H], error) {
	return r.actor.SendRequest(ctx, r.easy)
}
