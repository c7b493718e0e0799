// Package logging assembles structured slog loggers and formatting helpers used
// across imagededup.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so scan code can tag log lines with the
// scan identifier. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
package logging
