package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"gnomes/pkg/bridge"
	"gnomes/pkg/session"
	"gnomes/pkg/uci"
)

// Advertised option names.
const (
	OptRobotURL     = "RobotURL"
	OptRobotTimeout = "RobotTimeout"
	OptRobotRetries = "RobotRetries"
)

const (
	minTimeoutMS = 100
	maxTimeoutMS = 60000
	maxRetries   = 10
)

// Handle dispatches one parsed command according to the current state.
func (a *Adapter) Handle(ctx context.Context, cmd uci.EngineCommand) {
	switch a.state {
	case Boot:
		if _, ok := cmd.(uci.Init); ok {
			a.handleInit()
			return
		}
		if _, ok := cmd.(uci.Quit); ok {
			a.shutdown()
			return
		}
		a.violation(cmd)
	case Ready:
		a.handleReady(ctx, cmd)
	case Terminated:
		a.violation(cmd)
	}
}

func (a *Adapter) handleReady(ctx context.Context, cmd uci.EngineCommand) {
	switch c := cmd.(type) {
	case uci.Init:
		a.handleInit()
	case uci.Debug:
		if c.On == nil {
			a.sess.DebugOn = !a.sess.DebugOn
		} else {
			a.sess.DebugOn = *c.On
		}
	case uci.IsReady:
		_ = a.out.Emit(uci.ReadyOk{})
	case uci.SetOption:
		a.handleSetOption(c)
	case uci.Register:
		a.log.Debug("register ignored")
	case uci.NewGame:
		a.sess = session.ApplyNewGame(a.sess)
	case uci.Position:
		a.sess = session.ApplyPosition(a.sess, c.Base, c.Moves)
	case uci.Go:
		a.handleGo(ctx, c)
	case uci.Stop:
		if a.stopSearch() {
			_ = a.out.Emit(uci.BestMove{Move: uci.NullMove})
		}
	case uci.PonderHit:
		a.log.Debug("ponderhit ignored")
	case uci.Quit:
		a.shutdown()
	}
}

func (a *Adapter) handleInit() {
	cfg := a.robot.Config()
	cmds := []uci.GUICommand{
		uci.ID{Field: uci.IDName, Value: a.cfg.Name},
		uci.ID{Field: uci.IDAuthor, Value: a.cfg.Author},
		uci.Option{Name: OptRobotURL, Type: uci.OptionString, Default: cfg.URL},
		uci.Option{
			Name: OptRobotTimeout, Type: uci.OptionSpin,
			Default: strconv.FormatInt(cfg.Timeout.Milliseconds(), 10),
			Min:     strconv.Itoa(minTimeoutMS), Max: strconv.Itoa(maxTimeoutMS),
		},
		uci.Option{
			Name: OptRobotRetries, Type: uci.OptionSpin,
			Default: strconv.Itoa(cfg.MaxRetries),
			Min:     "0", Max: strconv.Itoa(maxRetries),
		},
		uci.UCIOk{},
	}
	_ = a.out.Emit(cmds...)
	a.sess.Initialized = true
	a.state = Ready
}

func (a *Adapter) handleSetOption(c uci.SetOption) {
	value := ""
	if c.Value != nil {
		value = *c.Value
	}
	name := zap.String("option", c.Name)

	switch {
	case strings.EqualFold(c.Name, OptRobotURL):
		if value == "" {
			a.report("option rejected", fmt.Errorf("%s needs a value", OptRobotURL), name)
			return
		}
		a.robot.Update(func(cfg *bridge.Config) { cfg.URL = value })
	case strings.EqualFold(c.Name, OptRobotTimeout):
		ms, err := spinValue(value, minTimeoutMS, maxTimeoutMS)
		if err != nil {
			a.report("option rejected", err, name)
			return
		}
		a.robot.Update(func(cfg *bridge.Config) { cfg.Timeout = time.Duration(ms) * time.Millisecond })
	case strings.EqualFold(c.Name, OptRobotRetries):
		n, err := spinValue(value, 0, maxRetries)
		if err != nil {
			a.report("option rejected", err, name)
			return
		}
		a.robot.Update(func(cfg *bridge.Config) { cfg.MaxRetries = n })
	default:
		a.log.Info("unknown option ignored", name)
		return
	}
	a.log.Info("option applied", name, zap.String("value", value))
}

func spinValue(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("value %d outside %d..%d", n, lo, hi)
	}
	return n, nil
}

// search is one in-flight move request.
type search struct {
	cancel context.CancelFunc
	done   chan struct{}
	// cancelled is set before done closes when the robot's answer was
	// dropped because of a cancel.
	cancelled bool
}

func (s *search) running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (a *Adapter) handleGo(ctx context.Context, c uci.Go) {
	if a.search != nil && a.search.running() {
		a.violation(c)
		return
	}
	fen, err := a.sess.FEN(a.replayer)
	if err != nil {
		a.report("cannot resolve position", err)
		_ = a.out.Emit(uci.Text("invalid position: " + err.Error()))
		return
	}

	searchCtx, cancel := context.WithCancel(ctx)
	s := &search{cancel: cancel, done: make(chan struct{})}
	a.search = s
	debug := a.sess.DebugOn
	go func() {
		defer close(s.done)
		defer cancel()
		s.cancelled = !a.runSearch(searchCtx, fen, debug)
	}()
}

// runSearch asks the robot and emits the result. It runs on its own
// goroutine and touches only the emitter, the logger and the robot. It
// returns false if ctx was cancelled before the turn ended.
func (a *Adapter) runSearch(ctx context.Context, fen string, debug bool) bool {
	_ = a.out.Emit(uci.Text("asking robot"))
	if debug {
		_ = a.out.Emit(uci.Text("fen " + fen))
	}

	start := time.Now()
	res, err := a.robot.RequestMove(ctx, fen)
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		a.log.Debug("search cancelled", zap.String("fen", fen), zap.Duration("elapsed", elapsed))
		return false
	}
	if err != nil {
		a.report("robot failed", err, zap.String("fen", fen), zap.Duration("elapsed", elapsed))
		_ = a.out.Emit(uci.Text("robot failed: " + err.Error()))
		return true
	}

	a.log.Info("robot answered",
		zap.String("fen", fen),
		zap.String("raw", res.Raw),
		zap.String("move", res.Move),
		zap.Int("attempts", res.Attempts),
		zap.Duration("elapsed", elapsed))
	if debug {
		_ = a.out.Emit(uci.Text(fmt.Sprintf("robot answered %s in %dms after %d attempts",
			res.Raw, elapsed.Milliseconds(), res.Attempts)))
	}
	_ = a.out.Emit(uci.BestMove{Move: res.Move})
	return true
}

// stopSearch cancels the running search, if any, and waits for it. It
// reports whether the cancel cut a turn short.
func (a *Adapter) stopSearch() bool {
	if a.search == nil {
		return false
	}
	a.search.cancel()
	<-a.search.done
	cancelled := a.search.cancelled
	a.search = nil
	return cancelled
}
