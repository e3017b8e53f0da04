package adapter

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Direction tags a mirrored line.
type Direction string

// Mirrored line directions.
const (
	DirIn  Direction = "in"
	DirOut Direction = "out"
	DirErr Direction = "err"
)

// Label is the stream name used in text logs.
func (d Direction) Label() string {
	switch d {
	case DirIn:
		return "stdin"
	case DirOut:
		return "stdout"
	default:
		return "stderr"
	}
}

// Mirror receives a copy of every raw input line, every emitted output line
// and every side-channel diagnostic. It has no bearing on protocol output.
type Mirror interface {
	Line(dir Direction, line string)
}

// MirrorFunc adapts a function to Mirror.
type MirrorFunc func(dir Direction, line string)

// Line implements Mirror.
func (f MirrorFunc) Line(dir Direction, line string) { f(dir, line) }

type multiMirror []Mirror

func (m multiMirror) Line(dir Direction, line string) {
	for _, sink := range m {
		sink.Line(dir, line)
	}
}

// Multi fans a line out to every non-nil sink.
func Multi(sinks ...Mirror) Mirror {
	var out multiMirror
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type nopMirror struct{}

func (nopMirror) Line(Direction, string) {}

// TimestampLayout is the time format of TextMirror lines.
const TimestampLayout = "2006-01-02 15:04:05"

// TextMirror writes "[timestamp] [stream] line" records to w.
type TextMirror struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewTextMirror creates a TextMirror writing to w.
func NewTextMirror(w io.Writer) *TextMirror {
	return &TextMirror{w: w, now: time.Now}
}

// Line implements Mirror. Write errors are dropped; the mirror is best effort.
func (m *TextMirror) Line(dir Direction, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _ = fmt.Fprintf(m.w, "[%s] [%s] %s\n", m.now().Format(TimestampLayout), dir.Label(), line)
}
