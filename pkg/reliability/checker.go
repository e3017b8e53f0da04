// Package reliability plays engines against each other and counts how often
// a move service returns illegal moves or fails to answer in time.
package reliability

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gnomes/pkg/rules"
)

// DefaultMaxPlies caps a game that never reaches checkmate.
const DefaultMaxPlies = 400

// FailedMove is a rejected move and the position it was offered in.
type FailedMove struct {
	FEN  string `json:"fen"`
	Move string `json:"move"`
}

// Timeout is an unanswered request and the position it was asked in.
type Timeout struct {
	FEN   string `json:"fen"`
	Count int    `json:"count"`
}

// Stats collects failures over one or more games.
type Stats struct {
	FailedMoves []FailedMove `json:"failed_moves"`
	Timeouts    []Timeout    `json:"timeouts"`
}

// Merge returns s followed by o.
func (s Stats) Merge(o Stats) Stats {
	return Stats{
		FailedMoves: append(append([]FailedMove{}, s.FailedMoves...), o.FailedMoves...),
		Timeouts:    append(append([]Timeout{}, s.Timeouts...), o.Timeouts...),
	}
}

// Checker alternates two players from the start position.
type Checker struct {
	White, Black Player
	MaxPlies     int // default DefaultMaxPlies
	Log          *zap.Logger
}

type newGamer interface{ NewGame() error }

// Play runs one game. A player giving up ends the game early and is not an
// error; other player errors are returned with the stats so far.
func (c *Checker) Play(ctx context.Context) (Stats, error) {
	log := c.logger()
	maxPlies := c.MaxPlies
	if maxPlies <= 0 {
		maxPlies = DefaultMaxPlies
	}

	for _, p := range []Player{c.White, c.Black} {
		if ng, ok := p.(newGamer); ok {
			if err := ng.NewGame(); err != nil {
				return Stats{}, err
			}
		}
	}

	g, err := rules.NewGame("")
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for ply := 0; ply < maxPlies && !g.Board().IsGameOver(); ply++ {
		p := c.White
		if ply%2 == 1 {
			p = c.Black
		}
		st, err := p.Move(ctx, g)
		stats = stats.Merge(st)
		var gu *GaveUpError
		if errors.As(err, &gu) {
			log.Warn("player gave up, ending game", zap.Int("ply", ply), zap.Error(err))
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
	}
	log.Debug("game over",
		zap.Int("plies", len(g.History())),
		zap.Bool("checkmate", g.Board().IsCheckmate()))
	return stats, nil
}

// RunN plays n games and merges their stats.
func (c *Checker) RunN(ctx context.Context, n int) (Stats, error) {
	var stats Stats
	for i := range n {
		c.logger().Debug("run", zap.Int("game", i+1), zap.Int("of", n))
		st, err := c.Play(ctx)
		stats = stats.Merge(st)
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (c *Checker) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
