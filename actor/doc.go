// File: actor/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package actor exposes asynchronous HTTP transfers to any number of
// goroutines. An Actor is a cheap, cloneable handle onto a request queue
// served by one transfer loop that owns the engine. Submit never blocks on
// the network; the returned Future resolves once the loop delivers the
// finished transfer handle back to its caller.
//
// Go has no destructors, so each clone is released with Close. When the last
// clone is closed the queue closes and the loop exits after its in-flight
// transfers finish.
package actor
