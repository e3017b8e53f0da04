// Package adapter runs the UCI side of the robot: it reads engine commands
// from a GUI, drives the session through the Boot/Ready/Terminated state
// machine, asks the move service for moves and writes GUI replies.
//
// Commands are handled one at a time in receipt order. The only
// asynchronous work is a running search, so isready, stop and quit are
// answered while the move service is being asked.
package adapter

import (
	"bufio"
	"context"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gnomes/pkg/bridge"
	"gnomes/pkg/session"
	"gnomes/pkg/uci"
)

// State is the dispatcher lifecycle state.
type State int

// Lifecycle states.
const (
	Boot State = iota
	Ready
	Terminated
)

func (s State) String() string {
	switch s {
	case Boot:
		return "boot"
	case Ready:
		return "ready"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Robot is the move service as seen by the adapter. *bridge.Client
// implements it.
type Robot interface {
	RequestMove(ctx context.Context, fen string) (bridge.Result, error)
	Config() bridge.Config
	Update(fn func(*bridge.Config))
}

// Config holds the identity reported in reply to "uci".
type Config struct {
	Name   string
	Author string
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Name == "" {
		out.Name = "Gnomes"
	}
	if out.Author == "" {
		out.Author = "Gnomes"
	}
	return out
}

// Adapter owns the session. It is not safe for concurrent use; Run is the
// only entry point that should be called from outside tests.
type Adapter struct {
	cfg       Config
	robot     Robot
	replayer  session.Replayer
	log       *zap.Logger
	mirror    Mirror
	out       *Emitter
	sessionID string

	state  State
	sess   session.Session
	search *search
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithLogger sets the side-channel logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithMirror sets the raw line mirror.
func WithMirror(m Mirror) Option {
	return func(a *Adapter) { a.mirror = m }
}

// WithReplayer replaces the rules-backed move replayer.
func WithReplayer(r session.Replayer) Option {
	return func(a *Adapter) { a.replayer = r }
}

// WithSessionID fixes the session ID instead of generating one.
func WithSessionID(id string) Option {
	return func(a *Adapter) { a.sessionID = id }
}

// New creates an Adapter writing protocol replies to out.
func New(cfg Config, robot Robot, out io.Writer, opts ...Option) *Adapter {
	a := &Adapter{
		cfg:      cfg.withDefaults(),
		robot:    robot,
		replayer: session.RulesReplayer{},
		log:      zap.NewNop(),
		mirror:   nopMirror{},
		state:    Boot,
		sess:     session.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.mirror == nil {
		a.mirror = nopMirror{}
	}
	if a.sessionID == "" {
		a.sessionID = uuid.NewString()
	}
	a.log = a.log.With(zap.String("session", a.sessionID))
	a.out = NewEmitter(out, a.mirror)
	return a
}

// SessionID identifies this adapter run in logs and the journal.
func (a *Adapter) SessionID() string { return a.sessionID }

// State returns the lifecycle state.
func (a *Adapter) State() State { return a.state }

// Session returns a snapshot of the session.
func (a *Adapter) Session() session.Session { return a.sess }

// Run reads lines from in until quit, end of input, or ctx cancellation.
// Cancellation behaves like quit. At end of input a running search is
// allowed to finish, bounded by the robot's own timeout, so piped input
// still gets its bestmove. Only transport failures are returned.
func (a *Adapter) Run(ctx context.Context, in io.Reader) error {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanner := bufio.NewScanner(in)
	lineCh := make(chan string)
	errCh := make(chan error, 1)

	// Read lines in a goroutine so we can select on ctx.Done.
	go func() {
		for scanner.Scan() {
			select {
			case lineCh <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return nil

		case line := <-lineCh:
			a.HandleLine(ctx, line)
			if err := a.out.Err(); err != nil {
				a.shutdown()
				return err
			}
			if a.state == Terminated {
				return nil
			}

		case err := <-errCh:
			if err != nil {
				a.shutdown()
				return &TransportError{Op: "read", Err: err}
			}
			a.drain()
			return a.out.Err()
		}
	}
}

// HandleLine parses one raw input line and dispatches it. Parse failures are
// reported on the side channel and leave the state unchanged.
func (a *Adapter) HandleLine(ctx context.Context, line string) {
	a.mirror.Line(DirIn, line)
	cmd, err := uci.ParseEngineCommand(line)
	if err != nil {
		a.report("unparsable input", err)
		return
	}
	if cmd == nil {
		return
	}
	a.Handle(ctx, cmd)
}

func (a *Adapter) report(msg string, err error, fields ...zap.Field) {
	a.log.Warn(msg, append(fields, zap.Error(err))...)
	a.mirror.Line(DirErr, msg+": "+err.Error())
}

func (a *Adapter) violation(cmd uci.EngineCommand) {
	err := &ProtocolViolationError{State: a.state, Command: uci.FormatEngineCommand(cmd)}
	a.report("command ignored", err)
}

// shutdown cancels any running search and waits for it.
func (a *Adapter) shutdown() {
	a.stopSearch()
	a.state = Terminated
}

// drain waits for a running search to answer, then terminates.
func (a *Adapter) drain() {
	if a.search != nil {
		<-a.search.done
		a.search = nil
	}
	a.state = Terminated
}
