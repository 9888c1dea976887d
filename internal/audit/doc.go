// Package audit implements async event dispatching for login outcomes and
// lockout decisions.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap logger, no-op).
//   - [Dispatcher]: single-worker relay with drop-if-full or block-if-full intake and
//     sink panic isolation.
//   - [Event]: structured audit record keyed by attempt ID.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine and flow functions do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goCred or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
