// Package flows contains pure-function orchestrators for the Engine's
// credential operations.
//
// Each flow function (RunAuthenticate, RunLogin) accepts a typed dependency
// struct and returns results without side-effects beyond those dependencies.
// Flows can be unit tested with plain function fakes and the Engine stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate credential sources, the attempt limiter, audit
// emission and metrics. They do NOT own any of these resources; ownership
// stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goCred (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
