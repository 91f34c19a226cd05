// Package logging provides the slog handler used by the spacebake binary.
//
// The handler buffers records emitted before the command line has been
// parsed. Once the final level and output are known, [Handler.Flush]
// replays the buffer through the configured formatter, so early debug
// lines are neither lost nor printed at the wrong level.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// The configuration surface shared by the root handler and handlers
// derived from it via WithAttrs or WithGroup. The CLI asserts the
// default logger's handler to this interface after flag parsing.
type Configurable interface {
	slog.Handler
	SetLevel(slog.Level)
	SetStream(io.Writer)
	SetPretty(bool)
	Flush()
}

var (
	_ Configurable = (*Handler)(nil)
	_ Configurable = (*derived)(nil)
)

// A buffering slog handler with a configurable level and formatter.
type Handler struct {
	mu     sync.Mutex
	level  slog.Level
	out    io.Writer
	pretty bool          // Human-oriented output for terminals.
	ready  bool          // Whether Flush has been called.
	buf    []slog.Record // Records held back until the handler is ready.
}

// Creates a handler that buffers records until [Handler.Flush].
//
// Until then the handler accepts every record at or above its level;
// nothing is written.
func NewHandler() *Handler {
	return &Handler{
		level: slog.LevelInfo,
		out:   os.Stderr,
	}
}

// Sets the minimum level. Records below it are dropped, including
// buffered ones that no longer qualify at flush time.
func (h *Handler) SetLevel(level slog.Level) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Sets the destination stream.
func (h *Handler) SetStream(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.out = w
}

// Switches between pretty terminal output and plain logfmt-style lines.
func (h *Handler) SetPretty(pretty bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pretty = pretty
}

// Marks the handler as configured and writes out the buffered records
// that still pass the level filter.
func (h *Handler) Flush() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ready = true
	for _, r := range h.buf {
		if r.Level >= h.level {
			h.write(r)
		}
	}
	h.buf = nil
}

// Reports whether a record at the given level would be emitted.
//
// While buffering, everything is accepted so that a later, more verbose
// configuration can still replay early records.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return true
	}
	return level >= h.level
}

// Buffers or writes a single record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready {
		h.buf = append(h.buf, r.Clone())
		return nil
	}
	if r.Level < h.level {
		return nil
	}
	h.write(r)
	return nil
}

// Returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derived{parent: h, attrs: attrs, group: ""}
}

// Returns a handler that nests subsequent attribute keys under name.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &derived{parent: h, group: name}
}

// Formats and writes one record. Callers hold h.mu.
func (h *Handler) write(r slog.Record) {
	var b strings.Builder

	if h.pretty {
		b.WriteString(r.Time.Format("15:04:05"))
		b.WriteByte(' ')
		b.WriteString(levelTag(r.Level))
		b.WriteByte(' ')
		b.WriteString(r.Message)
	} else {
		b.WriteString("time=")
		b.WriteString(r.Time.Format(time.RFC3339))
		b.WriteString(" level=")
		b.WriteString(r.Level.String())
		b.WriteString(" msg=")
		b.WriteString(fmt.Sprintf("%q", r.Message))
	}

	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})

	b.WriteByte('\n')
	io.WriteString(h.out, b.String())
}

// Appends one key=value pair. Group prefixes are already folded into
// attribute keys by derived handlers.
func writeAttr(b *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	b.WriteByte(' ')
	b.WriteString(a.Key)
	b.WriteByte('=')

	v := a.Value.Resolve()
	s := v.String()
	if strings.ContainsAny(s, " \t\"") {
		s = fmt.Sprintf("%q", s)
	}
	b.WriteString(s)
}

var (
	debugTag = color.New(color.FgMagenta).Sprint("DEBUG")
	infoTag  = color.New(color.FgCyan).Sprint("INFO ")
	warnTag  = color.New(color.FgYellow).Sprint("WARN ")
	errorTag = color.New(color.FgRed, color.Bold).Sprint("ERROR")
)

// Returns the colored tag for a level. Color is stripped automatically
// when the process is not attached to a terminal (color.NoColor).
func levelTag(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return debugTag
	case level < slog.LevelWarn:
		return infoTag
	case level < slog.LevelError:
		return warnTag
	default:
		return errorTag
	}
}

// A handler derived via WithAttrs or WithGroup. It forwards to the root
// handler after folding its own attributes into the record.
type derived struct {
	parent *Handler
	attrs  []slog.Attr
	group  string
}

func (d *derived) Enabled(ctx context.Context, level slog.Level) bool {
	return d.parent.Enabled(ctx, level)
}

func (d *derived) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	nr.AddAttrs(d.attrs...)
	if d.group == "" {
		r.Attrs(func(a slog.Attr) bool {
			nr.AddAttrs(a)
			return true
		})
	} else {
		r.Attrs(func(a slog.Attr) bool {
			nr.AddAttrs(slog.Attr{Key: d.group + "." + a.Key, Value: a.Value})
			return true
		})
	}
	return d.parent.Handle(ctx, nr)
}

func (d *derived) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(d.attrs)+len(attrs))
	merged = append(merged, d.attrs...)
	merged = append(merged, attrs...)
	return &derived{parent: d.parent, attrs: merged, group: d.group}
}

func (d *derived) WithGroup(name string) slog.Handler {
	if d.group != "" {
		name = d.group + "." + name
	}
	return &derived{parent: d.parent, attrs: d.attrs, group: name}
}

// Configuration on a derived handler applies to the root.

func (d *derived) SetLevel(level slog.Level) { d.parent.SetLevel(level) }
func (d *derived) SetStream(w io.Writer)     { d.parent.SetStream(w) }
func (d *derived) SetPretty(pretty bool)     { d.parent.SetPretty(pretty) }
func (d *derived) Flush()                    { d.parent.Flush() }
