// Package logging builds the slog loggers used across satchel and provides
// shared attribute helpers so log fields stay consistent between the
// daemon, the sync controller, and the store.
package logging
