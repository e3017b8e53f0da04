package adapter

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"gnomes/pkg/uci"
)

func TestTextMirror(t *testing.T) {
	var buf bytes.Buffer
	m := NewTextMirror(&buf)
	m.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	m.Line(DirIn, "uci")
	m.Line(DirOut, "uciok")
	m.Line(DirErr, "unparsable input: parse \"x\": unknown command")

	want := "[2024-03-09 14:05:07] [stdin] uci\n" +
		"[2024-03-09 14:05:07] [stdout] uciok\n" +
		"[2024-03-09 14:05:07] [stderr] unparsable input: parse \"x\": unknown command\n"
	if buf.String() != want {
		t.Errorf("mirror output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestMultiSkipsNil(t *testing.T) {
	var got []string
	rec := MirrorFunc(func(dir Direction, line string) { got = append(got, string(dir)+":"+line) })
	m := Multi(nil, rec, rec)
	m.Line(DirOut, "readyok")
	if len(got) != 2 || got[0] != "out:readyok" {
		t.Errorf("got %v", got)
	}
}

type shortWriter struct{ n int }

func (w *shortWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("closed")
}

func TestEmitterMirrorsAndSticksOnError(t *testing.T) {
	var out bytes.Buffer
	var mirrored []string
	e := NewEmitter(&out, MirrorFunc(func(_ Direction, line string) { mirrored = append(mirrored, line) }))
	if err := e.Emit(uci.ReadyOk{}, uci.BestMove{Move: "e2e4"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if out.String() != "readyok\nbestmove e2e4\n" {
		t.Errorf("output = %q", out.String())
	}
	if len(mirrored) != 2 {
		t.Errorf("mirrored = %v", mirrored)
	}

	w := &shortWriter{}
	bad := NewEmitter(w, nil)
	err := bad.Emit(uci.ReadyOk{})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Emit = %v, want TransportError", err)
	}
	if err := bad.Emit(uci.ReadyOk{}); !errors.Is(err, te) {
		t.Errorf("second Emit = %v, want the sticky error", err)
	}
	if w.n != 1 {
		t.Errorf("writer called %d times, want 1", w.n)
	}
}
