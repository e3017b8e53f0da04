package uci

import "fmt"

// ParseError reports a protocol line that matches no grammar production.
// It is recoverable: the caller skips the line and reads the next one.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Line, e.Reason)
}

func parseErr(line, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
