package adapter

import "fmt"

// ProtocolViolationError reports a command received in a state that does
// not accept it. The command is ignored.
type ProtocolViolationError struct {
	State   State
	Command string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: %q not allowed in state %s", e.Command, e.State)
}

// TransportError reports an I/O failure on the protocol streams. It ends
// the read loop.
type TransportError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
