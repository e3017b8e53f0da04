// Package rules is the chess-rules collaborator: position loading, legal
// move listing, move application and notation conversion. It wraps
// github.com/corentings/chess/v2 so the rest of the module never touches
// board internals.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// fiftyMoveClock is the halfmove clock at which the game is drawn.
const fiftyMoveClock = 100

// Move describes one legal move in both notations.
type Move struct {
	SAN       string // short algebraic, e.g. "Nf3", "exd8=Q+"
	From      string // e.g. "g1"
	To        string // e.g. "f3"
	Promotion string // "q", "r", "b", "n" or empty
	Long      string // long algebraic, e.g. "g1f3", "e7d8q"
}

// IllegalMoveError reports a move text that matches no legal move.
type IllegalMoveError struct {
	FEN  string
	Move string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q in %s", e.Move, e.FEN)
}

// Board is an immutable position handle.
type Board struct {
	pos *chess.Position
}

// LoadPosition parses a FEN string.
func LoadPosition(fen string) (*Board, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("load fen %q: %w", fen, err)
	}
	return &Board{pos: chess.NewGame(opt).Position()}, nil
}

// FEN returns the position in Forsyth-Edwards Notation.
func (b *Board) FEN() string { return b.pos.String() }

// Turn returns "white" or "black" for the side to move.
func (b *Board) Turn() string {
	if b.pos.Turn() == chess.Black {
		return "black"
	}
	return "white"
}

// LegalMoves lists every legal move in the position.
func (b *Board) LegalMoves() []Move {
	valid := b.pos.ValidMoves()
	out := make([]Move, 0, len(valid))
	for i := range valid {
		m := &valid[i]
		out = append(out, Move{
			SAN:       chess.AlgebraicNotation{}.Encode(b.pos, m),
			From:      m.S1().String(),
			To:        m.S2().String(),
			Promotion: promotionLetter(m.Promo()),
			Long:      chess.UCINotation{}.Encode(b.pos, m),
		})
	}
	return out
}

// Find resolves move text to a legal move. Long algebraic is tried first,
// then short algebraic; check and annotation suffixes are ignored and
// "0-0" is accepted for castling.
func (b *Board) Find(text string) (Move, error) {
	text = strings.TrimSpace(text)
	moves := b.LegalMoves()
	for _, m := range moves {
		if m.Long == text {
			return m, nil
		}
	}
	want := normalizeSAN(text)
	for _, m := range moves {
		if normalizeSAN(m.SAN) == want {
			return m, nil
		}
	}
	return Move{}, &IllegalMoveError{FEN: b.FEN(), Move: text}
}

// Apply plays move text (long or short algebraic) and returns the new board.
func (b *Board) Apply(text string) (*Board, error) {
	m, err := b.Find(text)
	if err != nil {
		return nil, err
	}
	cm, err := chess.UCINotation{}.Decode(b.pos, m.Long)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", m.Long, err)
	}
	return &Board{pos: b.pos.Update(cm)}, nil
}

// IsCheckmate reports whether the side to move is mated.
func (b *Board) IsCheckmate() bool { return b.pos.Status() == chess.Checkmate }

// IsGameOver reports checkmate, stalemate or an expired fifty-move clock.
func (b *Board) IsGameOver() bool {
	if b.pos.Status() != chess.NoMethod {
		return true
	}
	return halfmoveClock(b.FEN()) >= fiftyMoveClock
}

// Replay loads fen and applies moves in order.
func Replay(fen string, moves []string) (*Board, error) {
	b, err := LoadPosition(fen)
	if err != nil {
		return nil, err
	}
	for i, m := range moves {
		next, err := b.Apply(m)
		if err != nil {
			return nil, fmt.Errorf("replay move %d: %w", i+1, err)
		}
		b = next
	}
	return b, nil
}

// ToLong converts move text in the given position to long algebraic.
func ToLong(fen, text string) (string, error) {
	b, err := LoadPosition(fen)
	if err != nil {
		return "", err
	}
	m, err := b.Find(text)
	if err != nil {
		return "", err
	}
	return m.Long, nil
}

// TurnOf returns the side to move from the second FEN field without a full
// parse. Anything other than "b" is white.
func TurnOf(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 1 && fields[1] == "b" {
		return "black"
	}
	return "white"
}

func normalizeSAN(s string) string {
	s = strings.TrimRight(s, "+#!?")
	s = strings.ReplaceAll(s, "0", "O")
	return strings.ReplaceAll(s, "=", "")
}

func halfmoveClock(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 5 {
		return 0
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return n
}

func promotionLetter(pt chess.PieceType) string {
	switch pt {
	case chess.Queen:
		return "q"
	case chess.Rook:
		return "r"
	case chess.Bishop:
		return "b"
	case chess.Knight:
		return "n"
	default:
		return ""
	}
}
