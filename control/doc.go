// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration and runtime introspection for the transfer stack:
//   - YAML config loading with defaults and validation
//   - A snapshot store with reload listeners
//   - A probe registry exposing loop counters and platform facts
package control
