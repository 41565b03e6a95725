// Package logger provides structured logging for prodadmin.
//
// This package wraps log/slog:
//
//   - logger.go: Logger interface, configuration and levels
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Credential redaction
//
// Credentials never reach the log output: attributes whose key names a
// secret are replaced, and values that look like bearer tokens or JWTs are
// masked whatever their key.
package logger
