// Package source defines credential sources and the verifiers that decide
// whether a submitted password matches a row a source found.
//
// # Sources
//
//   - [Directory]: remote REST user directory, with a hash verifier and an
//     optional token-exchange verifier for the same row.
//   - [Database]: local SQL users table (Postgres or SQLite), hash verifier.
//   - [Bootstrap]: a single statically configured administrator.
//
// Sources are consulted in caller-defined order. A source reports "no row"
// as (nil, nil) and transport or decode failures as errors wrapping
// [ErrUnavailable].
//
// # Architecture boundaries
//
// Sources look rows up and own their verifiers. Ordering, timeouts, panic
// recovery and identity construction belong to the authenticate flow.
//
// # What this package must NOT do
//
//   - Import goCred or internal/flows.
//   - Log or return plaintext passwords or stored hashes.
//   - Distinguish "unknown account" from "wrong password" in returned errors.
package source
