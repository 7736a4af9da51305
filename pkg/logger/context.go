package logger

import (
	"context"
	"log/slog"

	"github.com/gaze-network/inscriber/pkg/logger/slogx"
)

type ctxKey struct{}

func fromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return logger
}

// WithContext derives a context whose logger carries args on top of the
// attributes already attached to ctx.
func WithContext(ctx context.Context, args ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, fromContext(ctx).With(args...))
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	emit(ctx, fromContext(ctx), slog.LevelDebug, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	emit(ctx, fromContext(ctx), slog.LevelInfo, msg, args...)
}

func SuccessContext(ctx context.Context, msg string, args ...any) {
	emit(ctx, fromContext(ctx), LevelSuccess, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	emit(ctx, fromContext(ctx), slog.LevelWarn, msg, args...)
}

// ErrorContext logs err under [slogx.ErrorKey] along with args.
func ErrorContext(ctx context.Context, msg string, err error, args ...any) {
	emit(ctx, fromContext(ctx), slog.LevelError, msg, append(args, slogx.Error(err))...)
}
