package reliability

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"gnomes/pkg/bridge"
	"gnomes/pkg/rules"
	"gnomes/pkg/uci"
	"gnomes/pkg/uciclient"
)

// Limits on a single move before the player gives up.
const (
	MaxFailedMoves = 3
	MaxTimeouts    = 10
)

// Player makes one move for the side to move in g.
type Player interface {
	Move(ctx context.Context, g *rules.Game) (Stats, error)
	Close() error
}

// GaveUpError reports a player that hit MaxFailedMoves or MaxTimeouts on
// one move.
type GaveUpError struct {
	FEN         string
	FailedMoves int
	Timeouts    int
}

func (e *GaveUpError) Error() string {
	return fmt.Sprintf("gave up on %s after %d failed moves and %d timeouts", e.FEN, e.FailedMoves, e.Timeouts)
}

// PlayerOptions configures players built by NewPlayer.
type PlayerOptions struct {
	Timeout     time.Duration // per request or search (default 5s)
	TimeoutRest time.Duration // pause after a timeout before asking again
	Log         *zap.Logger
}

func (o *PlayerOptions) withDefaults() PlayerOptions {
	out := *o
	if out.Timeout <= 0 {
		out.Timeout = 5 * time.Second
	}
	if out.Log == nil {
		out.Log = zap.NewNop()
	}
	return out
}

// NewPlayer builds the player a spec names. UCI players start their engine
// subprocess here.
func NewPlayer(ctx context.Context, spec EngineSpec, opts PlayerOptions) (Player, error) {
	opts = opts.withDefaults()
	log := opts.Log.With(zap.String("engine", spec.String()))
	switch spec.Proto {
	case ProtoHTTP:
		client := bridge.New(bridge.Config{URL: spec.URL, Timeout: opts.Timeout})
		return &HTTPPlayer{asker: client, rest: opts.TimeoutRest, log: log}, nil
	case ProtoUCI:
		engine, err := uciclient.Start(spec.Path, nil, uciclient.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := engine.Init(ctx); err != nil {
			_ = engine.Quit()
			return nil, err
		}
		return NewUCIPlayer(engine, opts.Timeout, log), nil
	case ProtoRandom:
		if spec.Seeded {
			return NewRandomPlayer(spec.Seed), nil
		}
		return NewRandomPlayer(rand.Uint64()), nil
	default:
		return nil, fmt.Errorf("unknown protocol %q", spec.Proto)
	}
}

// Asker sends one move request. *bridge.Client implements it.
type Asker interface {
	Ask(ctx context.Context, req bridge.Request) (string, error)
}

// HTTPPlayer asks a move service, retrying rejected moves and timeouts.
type HTTPPlayer struct {
	asker Asker
	rest  time.Duration
	log   *zap.Logger
}

// NewHTTPPlayer wraps an Asker. rest is the pause after a timeout.
func NewHTTPPlayer(asker Asker, rest time.Duration, log *zap.Logger) *HTTPPlayer {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPPlayer{asker: asker, rest: rest, log: log}
}

// Move asks the move service until it answers a legal move or gives up.
func (p *HTTPPlayer) Move(ctx context.Context, g *rules.Game) (Stats, error) {
	var st Stats
	failed := []string{}
	for len(st.FailedMoves) < MaxFailedMoves && len(st.Timeouts) < MaxTimeouts {
		board := g.Board()
		fen := board.FEN()
		move, err := p.asker.Ask(ctx, bridge.Request{FEN: fen, Turn: board.Turn(), FailedMoves: failed})
		var te *bridge.TimeoutError
		if errors.As(err, &te) {
			st.Timeouts = append(st.Timeouts, Timeout{FEN: fen, Count: 1})
			p.log.Warn("got a timeout, retrying", zap.String("fen", fen), zap.Duration("after", te.After))
			if err := sleep(ctx, p.rest); err != nil {
				return st, err
			}
			continue
		}
		if err != nil {
			return st, err
		}

		if _, err := g.Push(move); err != nil {
			var ie *rules.IllegalMoveError
			if !errors.As(err, &ie) {
				return st, err
			}
			st.FailedMoves = append(st.FailedMoves, FailedMove{FEN: fen, Move: move})
			failed = append(failed, move)
			p.log.Warn("failed to make a move, retrying", zap.String("fen", fen), zap.String("move", move))
			continue
		}
		return st, nil
	}
	return st, &GaveUpError{FEN: g.Board().FEN(), FailedMoves: len(st.FailedMoves), Timeouts: len(st.Timeouts)}
}

// Close is a no-op.
func (p *HTTPPlayer) Close() error { return nil }

// UCIEngine is the part of uciclient.Engine a UCIPlayer drives.
type UCIEngine interface {
	IsReady(ctx context.Context) error
	NewGame() error
	Position(fen string, moves []string) error
	Go(ctx context.Context, params ...uci.GoParam) (uciclient.SearchResult, error)
	Quit() error
}

// UCIPlayer asks a UCI engine for a fixed-time search per move.
type UCIPlayer struct {
	engine   UCIEngine
	moveTime time.Duration
	log      *zap.Logger
}

// NewUCIPlayer wraps an initialized engine.
func NewUCIPlayer(engine UCIEngine, moveTime time.Duration, log *zap.Logger) *UCIPlayer {
	if log == nil {
		log = zap.NewNop()
	}
	return &UCIPlayer{engine: engine, moveTime: moveTime, log: log}
}

// Move searches the game's position with a movetime bound.
func (p *UCIPlayer) Move(ctx context.Context, g *rules.Game) (Stats, error) {
	var st Stats
	for len(st.FailedMoves) < MaxFailedMoves && len(st.Timeouts) < MaxTimeouts {
		fen := g.Board().FEN()
		if err := p.engine.Position(g.BaseFEN(), g.LongMoves()); err != nil {
			return st, err
		}
		if err := p.engine.IsReady(ctx); err != nil {
			return st, err
		}

		goCtx, cancel := context.WithTimeout(ctx, 2*p.moveTime)
		res, err := p.engine.Go(goCtx, uci.GoParam{Kind: uci.GoMoveTime, N: p.moveTime.Milliseconds()})
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				st.Timeouts = append(st.Timeouts, Timeout{FEN: fen, Count: 1})
				p.log.Warn("got a timeout, retrying", zap.String("fen", fen))
				continue
			}
			return st, err
		}

		if _, err := g.Push(res.BestMove); err != nil {
			var ie *rules.IllegalMoveError
			if !errors.As(err, &ie) {
				return st, err
			}
			st.FailedMoves = append(st.FailedMoves, FailedMove{FEN: fen, Move: res.BestMove})
			p.log.Warn("failed to make a move, retrying", zap.String("fen", fen), zap.String("move", res.BestMove))
			continue
		}
		return st, nil
	}
	return st, &GaveUpError{FEN: g.Board().FEN(), FailedMoves: len(st.FailedMoves), Timeouts: len(st.Timeouts)}
}

// NewGame tells the engine a fresh game starts.
func (p *UCIPlayer) NewGame() error { return p.engine.NewGame() }

// Close sends quit to the engine.
func (p *UCIPlayer) Close() error { return p.engine.Quit() }

// RandomPlayer plays a uniformly random legal move.
type RandomPlayer struct {
	rng *rand.Rand
}

// NewRandomPlayer seeds the move picker; equal seeds replay equal games.
func NewRandomPlayer(seed uint64) *RandomPlayer {
	return &RandomPlayer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Move plays a uniformly chosen legal move.
func (p *RandomPlayer) Move(_ context.Context, g *rules.Game) (Stats, error) {
	moves := g.Board().LegalMoves()
	if len(moves) == 0 {
		return Stats{}, fmt.Errorf("no legal moves in %s", g.Board().FEN())
	}
	_, err := g.Push(moves[p.rng.IntN(len(moves))].Long)
	return Stats{}, err
}

// Close is a no-op.
func (p *RandomPlayer) Close() error { return nil }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
