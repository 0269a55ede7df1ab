// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. Adapters for log/slog and go.uber.org/zap are included.
package logging
