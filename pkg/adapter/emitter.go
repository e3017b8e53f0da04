package adapter

import (
	"bufio"
	"io"
	"sync"

	"gnomes/pkg/uci"
)

// Emitter serializes GUI commands to the protocol output. Writes from the
// read loop and from a running search are serialized; each Emit call is
// flushed before it returns.
type Emitter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	mirror Mirror
	err    error
}

// NewEmitter creates an Emitter writing to w.
func NewEmitter(w io.Writer, mirror Mirror) *Emitter {
	if mirror == nil {
		mirror = nopMirror{}
	}
	return &Emitter{w: bufio.NewWriter(w), mirror: mirror}
}

// Emit writes cmds in order, one line each. After the first write failure
// every later call is a no-op returning the same error.
func (e *Emitter) Emit(cmds ...uci.GUICommand) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	for _, cmd := range cmds {
		line := uci.Serialize(cmd)
		if _, err := e.w.WriteString(line + "\n"); err != nil {
			e.err = &TransportError{Op: "write", Err: err}
			return e.err
		}
		e.mirror.Line(DirOut, line)
	}
	if err := e.w.Flush(); err != nil {
		e.err = &TransportError{Op: "write", Err: err}
	}
	return e.err
}

// Err returns the sticky write error, if any.
func (e *Emitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}
