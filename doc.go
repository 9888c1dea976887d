// Package goCred verifies email and password credentials against an ordered chain
// of sources (a remote user directory, a SQL database, a bootstrap administrator)
// and limits failed logins per identifier with a windowed lockout.
//
// Engine methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// goCred is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (Identity, LoginResult, MetricsSnapshot). Source implementations live in
// source/, the lockout state machine and its stores in attempts/, password hashing and
// the strength policy in password/. Flow orchestration and audit dispatch live under
// internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Reveal through its errors or timing which source or check rejected a login.
//   - Log passwords, hashes or access tokens.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports goCred (no import cycles).
//
// # Failure contract
//
// Authenticate fails open per source (an unavailable source is skipped) and closed
// overall (no match is ErrInvalidCredentials). Login fails closed on limiter errors.
package goCred
