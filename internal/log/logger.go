// Package log wraps slog with component-scoped loggers so every line
// carries the subsystem that emitted it.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Components used across the synchronization layer.
const (
	ComponentApp         = "app"
	ComponentAPI         = "api"
	ComponentCache       = "cache"
	ComponentSync        = "sync"
	ComponentEvents      = "events"
	ComponentAccount     = "account"
	ComponentCategory    = "category"
	ComponentRule        = "category_rule"
	ComponentWallet      = "wallet"
	ComponentTransaction = "transaction"
)

// NewHandler builds the shared text handler writing to stdout. Every
// component logger derives from it via For.
func NewHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
}

// For builds a logger scoped to component. Deriving from the handler
// rather than another logger keeps exactly one component attr per line.
func For(handler slog.Handler, component string) *slog.Logger {
	return slog.New(handler).With("component", component)
}

// ParseLevel maps a config string to a slog level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
