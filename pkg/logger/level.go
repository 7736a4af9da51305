package logger

import (
	"fmt"
	"log/slog"
)

// LevelSuccess reports a completed step. It sorts between info and warn.
const LevelSuccess = slog.Level(2)

var levelNames = []struct {
	base slog.Level
	name string
}{
	{slog.LevelError, "ERROR"},
	{slog.LevelWarn, "WARN"},
	{LevelSuccess, "SUCCESS"},
	{slog.LevelInfo, "INFO"},
	{slog.LevelDebug, "DEBUG"},
}

func replaceLevel(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 || attr.Key != slog.LevelKey {
		return attr
	}
	if l, ok := attr.Value.Any().(slog.Level); ok {
		attr.Value = slog.StringValue(levelName(l))
	}
	return attr
}

// levelName names l after the closest named level below it, e.g. "WARN+1".
func levelName(l slog.Level) string {
	for _, n := range levelNames {
		if l >= n.base {
			if l == n.base {
				return n.name
			}
			return fmt.Sprintf("%s%+d", n.name, l-n.base)
		}
	}
	return fmt.Sprintf("DEBUG%+d", l-slog.LevelDebug)
}
