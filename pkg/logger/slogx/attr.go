// Package slogx has typed attribute constructors, so call sites never pass loose key/value pairs.
package slogx

import (
	"fmt"
	"log/slog"
	"time"
)

// Error returns an empty attribute for a nil error, which handlers drop.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(ErrorKey, err)
}

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Strings(key string, values []string) slog.Attr { return slog.Any(key, values) }

// Stringer formats value eagerly. A nil value is logged as "<nil>".
func Stringer(key string, value fmt.Stringer) slog.Attr {
	if value == nil {
		return slog.String(key, "<nil>")
	}
	return slog.String(key, value.String())
}

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }
