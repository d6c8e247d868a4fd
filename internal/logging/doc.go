// Package logging assembles structured slog loggers and formatting helpers used
// across clipcraft.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so orchestration code tags log lines with
// session IDs, operation names, job handles, and correlation IDs. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
