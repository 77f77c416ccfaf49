// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency holds the machinery behind the async transfer actor:
// an unbounded multi-producer request queue, single-use completion
// channels, and the transfer loop that owns a multiplexing engine on a
// dedicated OS thread, optionally pinned to one CPU.
package concurrency
