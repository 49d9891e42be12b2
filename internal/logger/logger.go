package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/crowdfund-revenue-ledger/internal/config"
)

// NewLogger creates the JSON logger of a service, writing to stdout
func NewLogger(cfg *config.Config) *slog.Logger {
	return New(os.Stdout, cfg)
}

// New creates a JSON logger tagged with the application name and environment
func New(w io.Writer, cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name, "env", cfg.Application.Env)
	}

	logger.Info("logger initialized", "level", level)

	return logger
}

// ForClosure scopes a logger to one closure
func ForClosure(l *slog.Logger, closureID, referenceType, referenceID, correlationID string) *slog.Logger {
	return l.With(
		"closure_id", closureID,
		"reference_type", referenceType,
		"reference_id", referenceID,
		"correlation_id", correlationID,
	)
}

func parseLevel(s string) slog.Level {
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
