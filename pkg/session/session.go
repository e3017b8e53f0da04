// Package session holds the adapter's view of the game: a base position, the
// moves applied on top of it, and the lifecycle flags. It does no chess
// validation; replay goes through an injected Replayer.
package session

import (
	"gnomes/pkg/rules"
	"gnomes/pkg/uci"
)

// Session is plain data owned by the dispatcher.
type Session struct {
	Base        uci.Base
	moves       []string
	Initialized bool
	DebugOn     bool
}

// New returns the boot-time session: start position, no moves.
func New() Session {
	return Session{Base: uci.StartPos()}
}

// Moves returns a copy of the applied moves.
func (s Session) Moves() []string {
	return append([]string(nil), s.moves...)
}

// ApplyNewGame resets the position to the start and clears the moves. The
// lifecycle flags are kept.
func ApplyNewGame(s Session) Session {
	s.Base = uci.StartPos()
	s.moves = nil
	return s
}

// ApplyPosition replaces base and moves together. The moves slice is copied.
func ApplyPosition(s Session, base uci.Base, moves []string) Session {
	s.Base = base
	s.moves = append([]string(nil), moves...)
	return s
}

// BaseFEN returns the base position as a FEN string.
func (s Session) BaseFEN() string {
	if s.Base.IsStart() {
		return rules.StartFEN
	}
	return s.Base.FEN
}

// Replayer applies long-algebraic moves to a FEN and returns the result.
type Replayer interface {
	Replay(fen string, moves []string) (string, error)
}

// FEN resolves the current position by replaying the applied moves.
func (s Session) FEN(r Replayer) (string, error) {
	if len(s.moves) == 0 {
		return s.BaseFEN(), nil
	}
	return r.Replay(s.BaseFEN(), s.moves)
}

// RulesReplayer replays with the rules package.
type RulesReplayer struct{}

// Replay implements Replayer.
func (RulesReplayer) Replay(fen string, moves []string) (string, error) {
	b, err := rules.Replay(fen, moves)
	if err != nil {
		return "", err
	}
	return b.FEN(), nil
}
