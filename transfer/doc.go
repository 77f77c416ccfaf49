// Package transfer
// Author: momentics <momentics@gmail.com>
//
// Transfer handles for hioload-http.
//
// An Easy value describes one HTTP request together with the response
// handler that receives its body. It is exclusively owned: the caller builds
// it, hands it to an actor, and gets the same value back once the engine is
// done with it, annotated with status code, headers and timing.
//
// Setters only record options. Validation happens when the engine registers
// the transfer, exactly like the synchronous handle this package mirrors.
package transfer
