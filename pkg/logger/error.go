package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/errbase"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
)

// errorDetails adds the verbose form and the innermost stack trace of the
// first error attribute of a record.
func errorDetails(_ context.Context, rec *slog.Record) {
	var err error
	rec.Attrs(func(attr slog.Attr) bool {
		if attr.Key != slogx.ErrorKey {
			return true
		}
		err, _ = attr.Value.Any().(error)
		return false
	})
	if err == nil {
		return
	}

	rec.AddAttrs(slog.String(slogx.ErrorVerboseKey, fmt.Sprintf("%+v", err)))
	if frames := stackOf(err); len(frames) > 0 {
		rec.AddAttrs(slog.Any(slogx.ErrorStackKey, frames))
	}
}

// stackOf returns the deepest stack recorded in the error chain, innermost call first.
func stackOf(err error) []string {
	var trace errbase.StackTrace
	for cur := err; cur != nil; cur = errors.UnwrapOnce(cur) {
		if p, ok := cur.(errbase.StackTraceProvider); ok {
			trace = p.StackTrace()
		}
	}
	if len(trace) == 0 {
		return nil
	}

	pcs := make([]uintptr, len(trace))
	for i, f := range trace {
		pcs[i] = uintptr(f)
	}
	frames := runtime.CallersFrames(pcs)
	lines := make([]string, 0, len(pcs))
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			lines = append(lines, fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line))
		}
		if !more {
			return lines
		}
	}
}
