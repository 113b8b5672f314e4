// Package logging assembles structured slog loggers and formatting helpers used
// across subtitler services.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers tag every
// line with the request identifier. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
