package rules

import (
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"
)

// Game is a mutable move history on top of a base position. Undo replays
// the history, so every board it hands out stays valid.
type Game struct {
	base  string
	board *Board
	moves []Move
}

// NewGame starts a game from fen; an empty fen means the start position.
func NewGame(fen string) (*Game, error) {
	if fen == "" {
		fen = StartFEN
	}
	b, err := LoadPosition(fen)
	if err != nil {
		return nil, err
	}
	return &Game{base: b.FEN(), board: b}, nil
}

// Board returns the current position.
func (g *Game) Board() *Board { return g.board }

// Push plays move text and records it.
func (g *Game) Push(text string) (Move, error) {
	m, err := g.board.Find(text)
	if err != nil {
		return Move{}, err
	}
	next, err := g.board.Apply(m.Long)
	if err != nil {
		return Move{}, err
	}
	g.board = next
	g.moves = append(g.moves, m)
	return m, nil
}

// Undo takes back the last move. It reports false when there is nothing to undo.
func (g *Game) Undo() bool {
	if len(g.moves) == 0 {
		return false
	}
	g.moves = g.moves[:len(g.moves)-1]
	b, err := Replay(g.base, g.LongMoves())
	if err != nil {
		// The history was legal when recorded, so replay cannot fail.
		panic(fmt.Sprintf("rules: replay of recorded history failed: %v", err))
	}
	g.board = b
	return true
}

// History returns the played moves in short algebraic notation.
func (g *Game) History() []string {
	out := make([]string, len(g.moves))
	for i, m := range g.moves {
		out[i] = m.SAN
	}
	return out
}

// LongMoves returns the played moves in long algebraic notation.
func (g *Game) LongMoves() []string {
	out := make([]string, len(g.moves))
	for i, m := range g.moves {
		out[i] = m.Long
	}
	return out
}

// BaseFEN returns the position the game started from.
func (g *Game) BaseFEN() string { return g.base }

// PGN renders the game as portable game notation.
func (g *Game) PGN() (string, error) {
	opt, err := chess.FEN(g.base)
	if err != nil {
		return "", fmt.Errorf("load fen %q: %w", g.base, err)
	}
	cg := chess.NewGame(opt)
	for _, m := range g.moves {
		cm, err := chess.UCINotation{}.Decode(cg.Position(), m.Long)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", m.Long, err)
		}
		if err := cg.Move(cm, nil); err != nil {
			return "", fmt.Errorf("play %s: %w", m.Long, err)
		}
	}
	return strings.TrimSpace(cg.String()), nil
}

// Grid returns the piece placement, rank 8 first. Empty squares are '.'.
// White pieces are upper case, as in FEN.
func (b *Board) Grid() [8][8]byte {
	var grid [8][8]byte
	placement := strings.Fields(b.FEN())[0]
	for r, row := range strings.Split(placement, "/") {
		f := 0
		for i := 0; i < len(row) && r < 8; i++ {
			c := row[i]
			if c >= '1' && c <= '8' {
				for n := 0; n < int(c-'0') && f < 8; n++ {
					grid[r][f] = '.'
					f++
				}
				continue
			}
			if f < 8 {
				grid[r][f] = c
				f++
			}
		}
	}
	return grid
}
