package adapter_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gnomes/pkg/adapter"
	"gnomes/pkg/bridge"
	"gnomes/pkg/uci"
)

// fakeRobot answers RequestMove through a configurable function and records
// every position it was asked about.
type fakeRobot struct {
	mu    sync.Mutex
	cfg   bridge.Config
	fens  []string
	reply func(ctx context.Context, fen string) (bridge.Result, error)
}

func newFakeRobot(reply func(ctx context.Context, fen string) (bridge.Result, error)) *fakeRobot {
	return &fakeRobot{
		cfg:   bridge.Config{URL: bridge.DefaultURL, Timeout: 5 * time.Second, BoundMultiplier: 2, MaxRetries: 3},
		reply: reply,
	}
}

func (r *fakeRobot) RequestMove(ctx context.Context, fen string) (bridge.Result, error) {
	r.mu.Lock()
	r.fens = append(r.fens, fen)
	reply := r.reply
	r.mu.Unlock()
	return reply(ctx, fen)
}

func (r *fakeRobot) Config() bridge.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

func (r *fakeRobot) Update(fn func(*bridge.Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.cfg)
}

func (r *fakeRobot) Fens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fens...)
}

func answer(move string) func(context.Context, string) (bridge.Result, error) {
	return func(context.Context, string) (bridge.Result, error) {
		return bridge.Result{Move: move, Raw: move, Attempts: 1}, nil
	}
}

// lineRecorder is an io.Writer that delivers complete lines on a channel.
type lineRecorder struct {
	mu      sync.Mutex
	partial []byte
	lines   chan string
}

func newLineRecorder() *lineRecorder {
	return &lineRecorder{lines: make(chan string, 256)}
}

func (r *lineRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partial = append(r.partial, p...)
	for {
		i := bytes.IndexByte(r.partial, '\n')
		if i < 0 {
			break
		}
		r.lines <- string(r.partial[:i])
		r.partial = r.partial[i+1:]
	}
	return len(p), nil
}

// next returns the next output line or fails after a timeout.
func (r *lineRecorder) next(t *testing.T) string {
	t.Helper()
	select {
	case line := <-r.lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for output")
		return ""
	}
}

// until reads lines until one equals want, returning everything read.
func (r *lineRecorder) until(t *testing.T, want string) []string {
	t.Helper()
	var seen []string
	for {
		line := r.next(t)
		seen = append(seen, line)
		if line == want {
			return seen
		}
	}
}

// quiet asserts no output arrives within d.
func (r *lineRecorder) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case line := <-r.lines:
		t.Fatalf("unexpected output %q", line)
	case <-time.After(d):
	}
}

// harness runs an adapter over a pipe.
type harness struct {
	in   *io.PipeWriter
	out  *lineRecorder
	done chan error
	a    *adapter.Adapter
}

func start(t *testing.T, robot adapter.Robot, opts ...adapter.Option) *harness {
	t.Helper()
	pr, pw := io.Pipe()
	h := &harness{in: pw, out: newLineRecorder(), done: make(chan error, 1)}
	h.a = adapter.New(adapter.Config{}, robot, h.out, opts...)
	go func() { h.done <- h.a.Run(context.Background(), pr) }()
	t.Cleanup(func() { _ = pw.Close() })
	return h
}

func (h *harness) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if _, err := io.WriteString(h.in, l+"\n"); err != nil {
			t.Fatalf("write %q: %v", l, err)
		}
	}
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("adapter did not stop")
		return nil
	}
}

func TestInitSequence(t *testing.T) {
	h := start(t, newFakeRobot(answer("e2e4")))
	h.send(t, "uci")

	want := []string{
		"id name Gnomes",
		"id author Gnomes",
		"option name RobotURL type string default " + bridge.DefaultURL,
		"option name RobotTimeout type spin default 5000 min 100 max 60000",
		"option name RobotRetries type spin default 3 min 0 max 10",
		"uciok",
	}
	for i, w := range want {
		if got := h.out.next(t); got != w {
			t.Errorf("line %d = %q, want %q", i, got, w)
		}
	}

	h.send(t, "quit")
	if err := h.wait(t); err != nil {
		t.Errorf("Run: %v", err)
	}
	if h.a.State() != adapter.Terminated {
		t.Errorf("State() = %s, want terminated", h.a.State())
	}
}

func TestGoBeforeInitIsIgnored(t *testing.T) {
	robot := newFakeRobot(answer("e2e4"))
	var mirrored []string
	var mu sync.Mutex
	mirror := adapter.MirrorFunc(func(dir adapter.Direction, line string) {
		if dir == adapter.DirErr {
			mu.Lock()
			mirrored = append(mirrored, line)
			mu.Unlock()
		}
	})
	h := start(t, robot, adapter.WithMirror(mirror))

	h.send(t, "position startpos", "go movetime 100", "uci")
	h.out.until(t, "uciok")
	h.send(t, "isready")
	if got := h.out.next(t); got != "readyok" {
		t.Fatalf("got %q, want readyok", got)
	}
	if n := len(robot.Fens()); n != 0 {
		t.Errorf("robot called %d times before init", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(mirrored) != 2 || !strings.Contains(mirrored[1], `"go movetime 100" not allowed in state boot`) {
		t.Errorf("side channel = %q, want two protocol violations", mirrored)
	}
}

func TestIsReadyDuringGo(t *testing.T) {
	release := make(chan struct{})
	robot := newFakeRobot(func(ctx context.Context, _ string) (bridge.Result, error) {
		<-release
		return bridge.Result{Move: "e2e4", Raw: "e4", Attempts: 1}, nil
	})
	h := start(t, robot)
	h.send(t, "uci")
	h.out.until(t, "uciok")

	h.send(t, "go", "isready", "isready", "isready")
	readyoks := 0
	for readyoks < 3 {
		switch line := h.out.next(t); line {
		case "readyok":
			readyoks++
		case "info string asking robot":
		default:
			t.Fatalf("unexpected %q while robot is busy", line)
		}
	}

	close(release)
	h.out.until(t, "bestmove e2e4")
	h.send(t, "quit")
	_ = h.wait(t)
}

func TestPositionReplayReachesRobot(t *testing.T) {
	robot := newFakeRobot(answer("g1f3"))
	h := start(t, robot)
	h.send(t, "uci", "position startpos moves e2e4 e7e5", "go")
	h.out.until(t, "bestmove g1f3")

	fens := robot.Fens()
	if len(fens) != 1 {
		t.Fatalf("robot asked %d times, want 1", len(fens))
	}
	if !strings.HasPrefix(fens[0], "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq ") {
		t.Errorf("robot asked about %q, want the position after 1.e4 e5", fens[0])
	}
	h.send(t, "quit")
	_ = h.wait(t)
}

func TestParseRejectionKeepsState(t *testing.T) {
	var errs []string
	var mu sync.Mutex
	h := start(t, newFakeRobot(answer("e2e4")), adapter.WithMirror(adapter.MirrorFunc(func(dir adapter.Direction, line string) {
		if dir == adapter.DirErr {
			mu.Lock()
			errs = append(errs, line)
			mu.Unlock()
		}
	})))
	h.send(t, "uci")
	h.out.until(t, "uciok")
	h.send(t, "bogus command", "", "isready")
	if got := h.out.next(t); got != "readyok" {
		t.Fatalf("got %q, want readyok", got)
	}
	if h.a.State() != adapter.Ready {
		t.Errorf("State() = %s, want ready", h.a.State())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || !strings.Contains(errs[0], "bogus command") {
		t.Errorf("side channel = %q", errs)
	}
	h.send(t, "quit")
	_ = h.wait(t)
}

func TestStopCancelsSearch(t *testing.T) {
	cancelled := make(chan struct{})
	robot := newFakeRobot(func(ctx context.Context, _ string) (bridge.Result, error) {
		<-ctx.Done()
		close(cancelled)
		return bridge.Result{}, ctx.Err()
	})
	h := start(t, robot)
	h.send(t, "uci")
	h.out.until(t, "uciok")
	h.send(t, "go infinite")
	if got := h.out.next(t); got != "info string asking robot" {
		t.Fatalf("got %q", got)
	}
	h.send(t, "stop", "isready")
	if got := h.out.next(t); got != "bestmove 0000" {
		t.Fatalf("got %q, want the null move after stop", got)
	}
	if got := h.out.next(t); got != "readyok" {
		t.Fatalf("got %q, want readyok", got)
	}
	select {
	case <-cancelled:
	default:
		t.Error("stop returned before the robot call was cancelled")
	}
	h.out.quiet(t, 50*time.Millisecond)
	h.send(t, "quit")
	_ = h.wait(t)
}

func TestSecondGoIsIgnored(t *testing.T) {
	release := make(chan struct{})
	robot := newFakeRobot(func(context.Context, string) (bridge.Result, error) {
		<-release
		return bridge.Result{Move: "d2d4", Attempts: 1}, nil
	})
	h := start(t, robot)
	h.send(t, "uci")
	h.out.until(t, "uciok")
	h.send(t, "go", "go", "isready")
	h.out.until(t, "readyok")
	close(release)
	h.out.until(t, "bestmove d2d4")
	h.out.quiet(t, 50*time.Millisecond)
	if n := len(robot.Fens()); n != 1 {
		t.Errorf("robot asked %d times, want 1", n)
	}
	h.send(t, "quit")
	_ = h.wait(t)
}

func TestRobotFailureDropsTurn(t *testing.T) {
	robot := newFakeRobot(func(context.Context, string) (bridge.Result, error) {
		return bridge.Result{}, &bridge.TimeoutError{URL: "http://robot", After: 10 * time.Second}
	})
	h := start(t, robot)
	h.send(t, "uci")
	h.out.until(t, "uciok")
	h.send(t, "go")
	h.out.until(t, "info string asking robot")
	if got := h.out.next(t); !strings.HasPrefix(got, "info string robot failed: move service http://robot timed out") {
		t.Errorf("got %q, want a failure info line", got)
	}
	h.send(t, "isready")
	if got := h.out.next(t); got != "readyok" {
		t.Errorf("got %q, want readyok and no bestmove", got)
	}
	h.send(t, "quit")
	_ = h.wait(t)
}

func TestInvalidPositionDropsTurn(t *testing.T) {
	robot := newFakeRobot(answer("e2e4"))
	h := start(t, robot)
	h.send(t, "uci", "position startpos moves e2e5", "go")
	h.out.until(t, "uciok")
	if got := h.out.next(t); !strings.HasPrefix(got, "info string invalid position") {
		t.Errorf("got %q", got)
	}
	if n := len(robot.Fens()); n != 0 {
		t.Errorf("robot asked %d times, want 0", n)
	}
	h.send(t, "quit")
	_ = h.wait(t)
}

func TestSetOptionUpdatesRobot(t *testing.T) {
	robot := newFakeRobot(answer("e2e4"))
	a := adapter.New(adapter.Config{}, robot, io.Discard)
	ctx := context.Background()
	for _, line := range []string{
		"uci",
		"setoption name robotURL value http://elsewhere:9000/move",
		"setoption name RobotTimeout value 250",
		"setoption name RobotRetries value 11",
		"setoption name RobotTimeout value soon",
		"setoption name Hash value 64",
	} {
		a.HandleLine(ctx, line)
	}
	cfg := robot.Config()
	if cfg.URL != "http://elsewhere:9000/move" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Errorf("Timeout = %s, want 250ms", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want unchanged 3", cfg.MaxRetries)
	}
}

func TestDebugAndSessionCommands(t *testing.T) {
	a := adapter.New(adapter.Config{Name: "N", Author: "A"}, newFakeRobot(answer("e2e4")), io.Discard, adapter.WithSessionID("s-1"))
	ctx := context.Background()
	if a.SessionID() != "s-1" {
		t.Errorf("SessionID() = %q", a.SessionID())
	}

	a.HandleLine(ctx, "debug on")
	if a.Session().DebugOn {
		t.Error("debug applied before init")
	}
	a.HandleLine(ctx, "uci")
	if !a.Session().Initialized {
		t.Error("Initialized not set by uci")
	}

	steps := []struct {
		line string
		want bool
	}{
		{"debug", true},
		{"debug", false},
		{"debug on", true},
		{"debug off", false},
	}
	for _, s := range steps {
		a.HandleLine(ctx, s.line)
		if got := a.Session().DebugOn; got != s.want {
			t.Errorf("after %q DebugOn = %v, want %v", s.line, got, s.want)
		}
	}

	a.HandleLine(ctx, "position fen 8/8/8/8/8/8/8/k6K w - - 0 1 moves h1h2")
	if got := a.Session().Moves(); len(got) != 1 {
		t.Errorf("Moves() = %v", got)
	}
	a.HandleLine(ctx, "ucinewgame")
	if s := a.Session(); !s.Base.IsStart() || len(s.Moves()) != 0 {
		t.Errorf("ucinewgame left %+v", s)
	}

	a.HandleLine(ctx, "quit")
	a.HandleLine(ctx, "uci")
	if a.State() != adapter.Terminated {
		t.Errorf("State() = %s after quit", a.State())
	}
}

func TestDebugEmitsDetail(t *testing.T) {
	h := start(t, newFakeRobot(answer("e2e4")))
	h.send(t, "uci", "debug on", "go")
	h.out.until(t, "uciok")
	lines := h.out.until(t, "bestmove e2e4")
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "info string fen rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1") {
		t.Errorf("debug output missing fen:\n%s", joined)
	}
	if !strings.Contains(joined, "info string robot answered e2e4 in ") {
		t.Errorf("debug output missing timing:\n%s", joined)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteFailureEndsRun(t *testing.T) {
	a := adapter.New(adapter.Config{}, newFakeRobot(answer("e2e4")), failingWriter{})
	err := a.Run(context.Background(), strings.NewReader("uci\nisready\n"))
	var te *adapter.TransportError
	if !errors.As(err, &te) || te.Op != "write" {
		t.Fatalf("Run = %v, want write TransportError", err)
	}
}

func TestEndOfInputStopsCleanly(t *testing.T) {
	var out bytes.Buffer
	a := adapter.New(adapter.Config{}, newFakeRobot(answer("e2e4")), &out)
	if err := a.Run(context.Background(), strings.NewReader("uci\nisready\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(out.String(), "uciok\nreadyok\n") {
		t.Errorf("output = %q", out.String())
	}
	if a.State() != adapter.Terminated {
		t.Errorf("State() = %s", a.State())
	}
}

func TestEndOfInputWaitsForSearch(t *testing.T) {
	robot := newFakeRobot(func(ctx context.Context, _ string) (bridge.Result, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return bridge.Result{Move: "e2e4", Raw: "e4", Attempts: 1}, nil
		case <-ctx.Done():
			return bridge.Result{}, ctx.Err()
		}
	})
	var out bytes.Buffer
	a := adapter.New(adapter.Config{}, robot, &out)
	if err := a.Run(context.Background(), strings.NewReader("uci\nposition startpos\ngo movetime 1000\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(out.String(), "uciok\ninfo string asking robot\nbestmove e2e4\n") {
		t.Errorf("output = %q", out.String())
	}
	if a.State() != adapter.Terminated {
		t.Errorf("State() = %s", a.State())
	}
}

func TestStopWithoutSearchIsSilent(t *testing.T) {
	var out bytes.Buffer
	a := adapter.New(adapter.Config{}, newFakeRobot(answer("e2e4")), &out)
	if err := a.Run(context.Background(), strings.NewReader("uci\nstop\nisready\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(out.String(), "bestmove") {
		t.Errorf("stop with no search emitted a bestmove: %q", out.String())
	}
}

func TestWithHTTPBridge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "e4")
	}))
	t.Cleanup(srv.Close)

	client := bridge.New(bridge.Config{URL: srv.URL, Timeout: time.Second})
	h := start(t, client)
	h.send(t, "uci", "isready", "ucinewgame", "position startpos", "go movetime 1000")
	h.out.until(t, "bestmove e2e4")
	h.send(t, "quit")
	if err := h.wait(t); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestSerializedOutputIsValidUCI(t *testing.T) {
	var out bytes.Buffer
	a := adapter.New(adapter.Config{}, newFakeRobot(answer("e2e4")), &out)
	if err := a.Run(context.Background(), strings.NewReader("uci\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if _, err := uci.ParseGUICommand(line); err != nil {
			t.Errorf("emitted unparsable line %q: %v", line, err)
		}
	}
}
