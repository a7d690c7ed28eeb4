package logging

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// idKeys are identifiers shortened to their first eight characters on the
// console, with the short name they are printed under.
var idKeys = map[string]string{
	"requestID": "req",
	"jobID":     "job",
	"analysis":  "analysis",
}

var levelColors = map[slog.Level]*color.Color{
	slog.LevelDebug: color.New(color.Faint),
	slog.LevelInfo:  color.New(color.FgCyan),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed, color.Bold),
}

// CompactHandler writes one line per record for console use:
//
//	[LEVEL] HH:MM:SS component: message | key=value key=value
//
// Levels are colored unless color.NoColor is set.
type CompactHandler struct {
	level     slog.Leveler
	mu        *sync.Mutex
	out       io.Writer
	component string
	attrs     []slog.Attr
	group     string
}

// NewCompactHandler creates a console handler writing to w
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	h := &CompactHandler{level: slog.LevelInfo, mu: &sync.Mutex{}, out: w}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.Grow(256)

	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format(time.TimeOnly))
		b.WriteByte(' ')
	}
	if h.component != "" {
		b.WriteString(h.component)
		b.WriteString(": ")
	}
	b.WriteString(r.Message)

	first := true
	write := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		if first {
			b.WriteString(" |")
			first = false
		}
		b.WriteByte(' ')
		h.writeAttr(&b, a)
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func levelTag(level slog.Level) string {
	tag := "[" + level.String() + "]"
	if len(tag) < 7 {
		tag += strings.Repeat(" ", 7-len(tag))
	}
	if c, ok := levelColors[level]; ok {
		return c.Sprint(tag)
	}
	return tag
}

func (h *CompactHandler) writeAttr(b *strings.Builder, a slog.Attr) {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	v := a.Value.Resolve()

	if short, ok := idKeys[a.Key]; ok && v.Kind() == slog.KindString {
		if s := v.String(); len(s) > 8 {
			b.WriteString(short)
			b.WriteByte('=')
			b.WriteString(s[:8])
			return
		}
	}
	if a.Key == "durationMs" && v.Kind() == slog.KindInt64 {
		b.WriteString("duration=")
		b.WriteString(strconv.FormatInt(v.Int64(), 10))
		b.WriteString("ms")
		return
	}

	b.WriteString(key)
	b.WriteByte('=')
	switch v.Kind() {
	case slog.KindString:
		writeString(b, v.String())
	case slog.KindInt64:
		b.WriteString(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		b.WriteString(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		b.WriteString(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case slog.KindDuration:
		b.WriteString(v.Duration().String())
	case slog.KindTime:
		b.WriteString(v.Time().Format(time.RFC3339))
	case slog.KindGroup:
		for i, ga := range v.Group() {
			if i > 0 {
				b.WriteByte(',')
			}
			h.writeAttr(b, ga)
		}
	default:
		if err, ok := v.Any().(error); ok {
			b.WriteString(strconv.Quote(err.Error()))
			return
		}
		writeString(b, v.String())
	}
}

// writeString quotes values a reader could not split on spaces.
func writeString(b *strings.Builder, s string) {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		b.WriteString(strconv.Quote(s))
		return
	}
	b.WriteString(s)
}

// WithAttrs lifts a "component" attribute into the line prefix.
func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	cp.attrs = append(cp.attrs, h.attrs...)
	for _, a := range attrs {
		if a.Key == "component" && h.group == "" {
			cp.component = a.Value.String()
			continue
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	cp := *h
	if cp.group != "" {
		name = cp.group + "." + name
	}
	cp.group = name
	return &cp
}
