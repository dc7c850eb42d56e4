// Package logging assembles structured slog loggers and formatting helpers used
// across manifestrecon.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so receiving code can tag log lines with
// manifest IDs, volume IDs, and the operator running the session. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
