// Package logger is the process-wide structured logger. Records carry the
// attributes of the logger stored in their context, so callers can tag a
// whole flow once with [WithContext] and log with the *Context helpers.
//
// nolint: sloglint
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
)

// Config is the logger section of the config file.
type Config struct {
	// Output selects the handler: "console" (default), "text" or "json".
	Output string `mapstructure:"output"`

	// Debug lowers the level to debug and expands error attributes
	// with the verbose message and the stack trace.
	Debug bool `mapstructure:"debug"`
}

var (
	level = new(slog.LevelVar)

	logger = slog.New(NewConsoleHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
)

func init() {
	slog.SetDefault(logger)
}

// Init replaces the global logger according to cfg. Records are written to stdout.
func Init(cfg Config) error {
	return initWriter(os.Stdout, cfg)
}

func initWriter(w io.Writer, cfg Config) error {
	level.Set(slog.LevelInfo)
	var hooks []hook
	if cfg.Debug {
		level.Set(slog.LevelDebug)
		hooks = append(hooks, errorDetails)
	}

	opts := &slog.HandlerOptions{
		AddSource:   cfg.Debug,
		Level:       level,
		ReplaceAttr: replaceLevel,
	}
	var handler slog.Handler
	switch strings.ToLower(cfg.Output) {
	case "", "console":
		opts.AddSource = false
		handler = NewConsoleHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return errors.Wrapf(errs.InvalidConfig, "unknown logger output %q", cfg.Output)
	}

	logger = slog.New(withHooks(handler, hooks...))
	slog.SetDefault(logger)
	return nil
}

// With returns the global logger with args attached.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

func Debug(msg string, args ...any) {
	emit(context.Background(), logger, slog.LevelDebug, msg, args...)
}

func Info(msg string, args ...any) {
	emit(context.Background(), logger, slog.LevelInfo, msg, args...)
}

func Success(msg string, args ...any) {
	emit(context.Background(), logger, LevelSuccess, msg, args...)
}

func Warn(msg string, args ...any) {
	emit(context.Background(), logger, slog.LevelWarn, msg, args...)
}

// emit must be called directly by an exported helper: the caller frame is
// taken at a fixed depth.
func emit(ctx context.Context, l *slog.Logger, lvl slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, lvl) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // runtime.Callers, emit, exported helper
	rec := slog.NewRecord(time.Now(), lvl, msg, pcs[0])
	rec.Add(args...)
	_ = l.Handler().Handle(ctx, rec)
}
