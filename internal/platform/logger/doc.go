// Package logger provides structured logging for the pipeline and the
// artifact server.
//
// Logs are JSON lines written with log/slog to stderr. A run id attached to
// the context with WithRunID is carried by every logger derived from it.
package logger
