// Package uciclient drives an external UCI engine, either a subprocess or
// any pair of pipes. It is the GUI side of the protocol: it formats engine
// commands and waits for the engine's replies.
package uciclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"gnomes/pkg/rules"
	"gnomes/pkg/uci"
)

// ErrEngineExited is returned when the engine's output ends while a reply
// is awaited.
var ErrEngineExited = errors.New("engine exited")

// quitGrace is how long Quit waits for a subprocess before killing it.
const quitGrace = 2 * time.Second

// Engine is a connected UCI engine. Commands must not be issued
// concurrently; the zero value is not usable.
type Engine struct {
	w     io.WriteCloser
	lines chan string
	log   *zap.Logger

	mu      sync.Mutex
	readErr error

	cmd *exec.Cmd

	// Filled by Init.
	Name    string
	Author  string
	Options []uci.Option
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger for raw traffic (debug level).
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Start launches path with args and connects to its standard streams.
func Start(path string, args []string, opts ...Option) (*Engine, error) {
	cmd := exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", path, err)
	}
	e := New(stdout, stdin, opts...)
	e.cmd = cmd
	return e, nil
}

// New wraps an engine that reads commands from w and writes replies to r.
func New(r io.Reader, w io.WriteCloser, opts ...Option) *Engine {
	e := &Engine{
		w:     w,
		lines: make(chan string, 64),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.readLoop(r)
	return e
}

func (e *Engine) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		e.lines <- scanner.Text()
	}
	e.mu.Lock()
	e.readErr = scanner.Err()
	e.mu.Unlock()
	close(e.lines)
}

// Send writes one engine command.
func (e *Engine) Send(cmd uci.EngineCommand) error {
	line := uci.FormatEngineCommand(cmd)
	e.log.Debug("engine <", zap.String("line", line))
	if _, err := io.WriteString(e.w, line+"\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

// next returns the next parsable reply. Unparsable lines are skipped.
func (e *Engine) next(ctx context.Context) (uci.GUICommand, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-e.lines:
			if !ok {
				e.mu.Lock()
				err := e.readErr
				e.mu.Unlock()
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrEngineExited, err)
				}
				return nil, ErrEngineExited
			}
			e.log.Debug("engine >", zap.String("line", line))
			cmd, err := uci.ParseGUICommand(line)
			if err != nil {
				e.log.Debug("skipping engine output", zap.Error(err))
				continue
			}
			if cmd == nil {
				continue
			}
			return cmd, nil
		}
	}
}

// Init sends "uci" and collects id and option lines until "uciok".
func (e *Engine) Init(ctx context.Context) error {
	if err := e.Send(uci.Init{}); err != nil {
		return err
	}
	e.Options = nil
	for {
		cmd, err := e.next(ctx)
		if err != nil {
			return fmt.Errorf("await uciok: %w", err)
		}
		switch c := cmd.(type) {
		case uci.ID:
			if c.Field == uci.IDName {
				e.Name = c.Value
			} else {
				e.Author = c.Value
			}
		case uci.Option:
			e.Options = append(e.Options, c)
		case uci.UCIOk:
			return nil
		}
	}
}

// IsReady sends "isready" and discards everything until "readyok".
func (e *Engine) IsReady(ctx context.Context) error {
	if err := e.Send(uci.IsReady{}); err != nil {
		return err
	}
	for {
		cmd, err := e.next(ctx)
		if err != nil {
			return fmt.Errorf("await readyok: %w", err)
		}
		if _, ok := cmd.(uci.ReadyOk); ok {
			return nil
		}
	}
}

// NewGame sends "ucinewgame".
func (e *Engine) NewGame() error {
	return e.Send(uci.NewGame{})
}

// SetOption sends "setoption name <name> value <value>".
func (e *Engine) SetOption(name, value string) error {
	return e.Send(uci.SetOption{Name: name, Value: &value})
}

// Position sends the position. An empty fen or the standard start FEN is
// sent as startpos.
func (e *Engine) Position(fen string, moves []string) error {
	base := uci.StartPos()
	if fen != "" && fen != rules.StartFEN {
		base = uci.FENBase(fen)
	}
	return e.Send(uci.Position{Base: base, Moves: moves})
}

// SearchResult is the engine's answer to "go".
type SearchResult struct {
	BestMove string
	Ponder   string
	Info     []uci.Info
}

// Go starts a search and waits for "bestmove". When ctx ends first, "stop"
// is sent and ctx's error returned; the late bestmove is left for the next
// IsReady to discard.
func (e *Engine) Go(ctx context.Context, params ...uci.GoParam) (SearchResult, error) {
	var res SearchResult
	if err := e.Send(uci.Go{Params: params}); err != nil {
		return res, err
	}
	for {
		cmd, err := e.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = e.Send(uci.Stop{})
			}
			return res, fmt.Errorf("await bestmove: %w", err)
		}
		switch c := cmd.(type) {
		case uci.Info:
			res.Info = append(res.Info, c)
		case uci.BestMove:
			res.BestMove = c.Move
			res.Ponder = c.Ponder
			return res, nil
		}
	}
}

// Quit sends "quit", closes the engine's input and, for subprocesses,
// waits for exit (killing after a grace period).
func (e *Engine) Quit() error {
	sendErr := e.Send(uci.Quit{})
	_ = e.w.Close()
	go func() {
		for range e.lines {
		}
	}()
	if e.cmd == nil {
		return sendErr
	}

	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("engine exit: %w", err)
		}
		return nil
	case <-time.After(quitGrace):
		_ = e.cmd.Process.Kill()
		<-done
		return fmt.Errorf("engine did not exit within %s; killed", quitGrace)
	}
}
