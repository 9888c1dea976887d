// Package middleware exposes HTTP adapters around goCred.Engine for login endpoints.
//
// # Adapters
//
//   - [ClientIP]: resolves the caller address and stores it with goCred.WithClientIP,
//     so Login uses it as the lockout identifier.
//   - [Lockout]: rejects requests from locked-out identifiers with 429 before the
//     handler runs.
//   - [RequireBearer]: guards administrative routes with a static bearer key.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// credential checks or lockout policy itself.
//
// # What this package must NOT do
//
//   - Read request bodies.
//   - Access Redis or credential sources directly.
//   - Record login attempts (Engine.Login does).
package middleware
