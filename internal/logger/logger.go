// Package logger holds the process-wide slog instance. Packages log
// through L() or the package-level helpers; main configures it once
// from the environment.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amoradev/amora-backend/internal/config"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// textTimeLayout replaces slog's RFC3339 timestamps in text mode.
const textTimeLayout = "2006-01-02 15:04:05"

type Config struct {
	Level      string
	Format     Format
	Component  string
	WithSource bool
}

var (
	mu     sync.RWMutex
	logger *slog.Logger
	cfg    = Config{
		Level:  "info",
		Format: FormatText,
	}
)

// InitFromConfig initializes the global logger from app config.
func InitFromConfig(c *config.Config) {
	if c == nil {
		Init(nil)
		return
	}
	Init(&Config{
		Level:      c.Log.Level,
		Format:     Format(c.Log.Format),
		Component:  c.Log.Component,
		WithSource: c.Log.Source,
	})
}

// Init sets up the global logger. Safe to call multiple times; a nil
// config re-applies the current settings.
func Init(c *Config) {
	mu.Lock()
	defer mu.Unlock()

	if c != nil {
		cfg = *c
	}

	base := slog.New(newHandler(cfg))
	if cfg.Component != "" {
		base = base.With("component", cfg.Component)
	}
	logger = base
}

func newHandler(c Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(c.Level),
		AddSource: c.WithSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && c.Format == FormatText {
				return slog.String(slog.TimeKey, time.Now().Format(textTimeLayout))
			}
			return a
		},
	}

	switch Format(strings.ToLower(string(c.Format))) {
	case FormatJSON:
		return slog.NewJSONHandler(os.Stdout, opts)
	default:
		return slog.NewTextHandler(os.Stdout, opts)
	}
}

// L returns the global logger, initializing the default one on first
// use so callers never see nil.
func L() *slog.Logger {
	mu.RLock()
	if logger != nil {
		defer mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	Init(nil)

	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With creates a child logger with additional attributes.
func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
