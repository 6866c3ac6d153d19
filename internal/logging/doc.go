// Package logging constructs slog loggers with console and JSON handlers and
// provides the attribute helpers shared by every component.
package logging
