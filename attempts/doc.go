// Package attempts counts failed login attempts per identifier and decides
// when an identifier is locked out.
//
// # State machine
//
// Each identifier is Clean (no record), Counting (1..MaxAttempts-1 failures
// inside the window) or Locked (count >= MaxAttempts inside the window). A
// record whose window started more than LockoutDuration ago is treated as
// Clean again; the next [Limiter.RecordAttempt] starts a fresh window with a
// count of one.
//
// # Stores
//
// State lives in a [Store] passed to [New]:
//
//   - [MemoryStore] keeps records in a bounded LRU inside the process.
//   - [RedisStore] keeps one hash per identifier so every instance sees the
//     same lockout state.
//
// Both stores count atomically per identifier. [RedisStore] does it in one
// Lua script.
//
// # Architecture boundaries
//
// The limiter owns the thresholds. Stores only apply [NextRecord]: start a
// window or add one to it.
//
// # What this package must NOT do
//
//   - Import goCred or any internal package.
//   - Decide what a caller does with a blocked result (HTTP status, audit, metrics).
package attempts
