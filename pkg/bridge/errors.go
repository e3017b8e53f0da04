package bridge

import (
	"fmt"
	"strings"
	"time"
)

// TimeoutError reports a move service that did not answer within the bound.
type TimeoutError struct {
	URL   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("move service %s timed out after %s", e.URL, e.After)
}

// IllegalMoveError reports that every attempt returned text matching no
// legal move. Tried holds the rejected texts in order.
type IllegalMoveError struct {
	FEN      string
	Attempts int
	Tried    []string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("move service returned no legal move for %s after %d attempts (tried %s)",
		e.FEN, e.Attempts, strings.Join(e.Tried, ", "))
}

// StatusError reports a non-2xx reply from the move service.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("move service %s returned status %d: %s", e.URL, e.Code, e.Body)
}
