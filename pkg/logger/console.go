package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/gaze-network/inscriber/pkg/bufferpool"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorGray   = "\x1b[90m"
)

// ConsoleHandler is a [slog.Handler] for interactive terminals. Each record is one line
// starting with a level marker, followed by the message and its attributes as key=value pairs.
type ConsoleHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	color  bool
	prefix string // pre-formatted attributes from WithAttrs
	groups []string
}

// NewConsoleHandler creates a [ConsoleHandler] that writes to w. Colors are enabled
// only when w is a terminal and NO_COLOR is unset.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{
		mu:    &sync.Mutex{},
		w:     w,
		color: isTerminal(w) && os.Getenv("NO_COLOR") == "",
	}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *ConsoleHandler) Handle(_ context.Context, rec slog.Record) error {
	marker, color := levelMarker(rec.Level)

	pooled := bufferpool.Get()
	defer pooled.Free()

	buf := pooled.Buffer
	h.paint(buf, color, marker)
	buf.WriteByte(' ')
	h.paint(buf, color, rec.Message)
	if h.prefix != "" {
		buf.WriteString(h.prefix)
	}
	rec.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(buf, h.groups, attr)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	buf := bytes.NewBufferString(h.prefix)
	for _, attr := range attrs {
		h.appendAttr(buf, h.groups, attr)
	}
	clone := *h
	clone.prefix = buf.String()
	return &clone
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *ConsoleHandler) appendAttr(buf *bytes.Buffer, groups []string, attr slog.Attr) {
	if h.opts.ReplaceAttr != nil && attr.Value.Kind() != slog.KindGroup {
		attr = h.opts.ReplaceAttr(groups, attr)
	}
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			groups = append(append([]string{}, groups...), attr.Key)
		}
		for _, child := range attr.Value.Group() {
			h.appendAttr(buf, groups, child)
		}
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	buf.WriteByte(' ')
	h.paint(buf, colorGray, key+"=")
	buf.WriteString(quoteIfNeeded(attr.Value.String()))
}

func (h *ConsoleHandler) paint(buf *bytes.Buffer, color, s string) {
	if !h.color || color == "" {
		buf.WriteString(s)
		return
	}
	buf.WriteString(color)
	buf.WriteString(s)
	buf.WriteString(colorReset)
}

func levelMarker(level slog.Level) (string, string) {
	switch {
	case level < slog.LevelInfo:
		return "•", colorGray
	case level < LevelSuccess:
		return "ℹ", colorBlue
	case level < slog.LevelWarn:
		return "✔", colorGreen
	case level < slog.LevelError:
		return "⚠", colorYellow
	default:
		return "✖", colorRed
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == '"' || r == '=' || !unicode.IsPrint(r) {
			return strconv.Quote(s)
		}
	}
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
