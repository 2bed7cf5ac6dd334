// Package logging wires slog with the handlers the daemon uses: a compact
// console handler for interactive runs and a JSON handler for log files and
// machine consumption. Context annotations set by internal/services flow into
// records via WithContext.
package logging
