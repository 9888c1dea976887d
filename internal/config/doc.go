// Package config loads process settings for the credgate binaries from .env files
// and CREDGATE_-prefixed environment variables, and builds the zap logger.
//
// # Architecture boundaries
//
// This package maps settings onto goCred.Config. Building sources, stores and the
// engine from those settings is the binaries' job.
//
// # What this package must NOT do
//
//   - Open network connections or database handles.
//   - Read configuration from global viper state.
package config
