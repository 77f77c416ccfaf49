// File: engine/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package engine is a multiplexing HTTP transfer driver built on net/http.
// Its primitives follow the multi-handle shape: Add queues a transfer,
// Perform starts everything queued, Wait blocks until a transfer finishes
// or the caller is woken, InfoRead pops completion messages and Remove
// detaches a handle. A Multi is meant to be driven by one goroutine.
package engine
