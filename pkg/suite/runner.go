package suite

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gnomes/pkg/uci"
	"gnomes/pkg/uciclient"
)

// Engine is the part of uciclient.Engine the runner needs.
type Engine interface {
	Init(ctx context.Context) error
	IsReady(ctx context.Context) error
	NewGame() error
	Position(fen string, moves []string) error
	Go(ctx context.Context, params ...uci.GoParam) (uciclient.SearchResult, error)
	Quit() error
}

// EngineFactory starts one engine per worker.
type EngineFactory func(ctx context.Context) (Engine, error)

// Options configures a run. Zero durations mean no pause.
type Options struct {
	Workers   int           // Parallel engines (default 1).
	Timeout   time.Duration // movetime per test; the search is abandoned after twice this (default 10s).
	Depth     int           // go depth, when positive.
	Rest      time.Duration // Pause between tests.
	Stagger   time.Duration // Worker n starts after n*Stagger.
	Attempts  int           // Tries per test before the run fails (default 10).
	RetryRest time.Duration // Pause between tries.
	Progress  io.Writer     // Per-test progress lines; nil discards.
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = 10 * time.Second
	}
	if out.Attempts <= 0 {
		out.Attempts = 10
	}
	if out.Progress == nil {
		out.Progress = io.Discard
	}
	return out
}

// Result is the outcome of one test case.
type Result struct {
	ID       string
	Suite    string
	FEN      string
	Expected string // best moves joined by "/"
	Got      string
	OK       bool
}

// Selection picks which tests run.
type Selection struct {
	Match   []string // Regexes on test ID; empty selects all.
	Shuffle bool
	Seed    uint64
}

// Select flattens suites, filters by Match and optionally shuffles with a
// seeded generator so a run can be repeated.
func Select(suites []Suite, sel Selection) ([]TestCase, error) {
	res := make([]*regexp.Regexp, 0, len(sel.Match))
	for _, m := range sel.Match {
		re, err := regexp.Compile(m)
		if err != nil {
			return nil, fmt.Errorf("bad --match %q: %w", m, err)
		}
		res = append(res, re)
	}

	var out []TestCase
	for _, s := range suites {
		for _, tc := range s.Tests {
			if matchesAny(res, tc.ID) {
				out = append(out, tc)
			}
		}
	}
	if sel.Shuffle {
		r := rand.New(rand.NewPCG(sel.Seed, sel.Seed^0x9e3779b97f4a7c15))
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out, nil
}

func matchesAny(res []*regexp.Regexp, id string) bool {
	if len(res) == 0 {
		return true
	}
	for _, re := range res {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}

// Chunk splits tests into at most workers contiguous groups.
func Chunk(tests []TestCase, workers int) [][]TestCase {
	if len(tests) == 0 {
		return nil
	}
	size := max((len(tests)+workers-1)/workers, 1)
	var out [][]TestCase
	for start := 0; start < len(tests); start += size {
		out = append(out, tests[start:min(start+size, len(tests))])
	}
	return out
}

// Run executes tests across workers and returns results sorted by ID. A test
// that fails every attempt aborts the whole run.
func Run(ctx context.Context, suites []Suite, tests []TestCase, newEngine EngineFactory, opts Options) ([]Result, error) {
	opts = opts.withDefaults()
	suiteOf := make(map[string]string)
	for _, s := range suites {
		for _, tc := range s.Tests {
			suiteOf[tc.ID] = s.Name
		}
	}

	chunks := Chunk(tests, opts.Workers)
	perWorker := make([][]Result, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		w := &worker{num: i + 1, opts: opts, suiteOf: suiteOf}
		g.Go(func() error {
			if err := sleep(gctx, time.Duration(i)*opts.Stagger); err != nil {
				return err
			}
			results, err := w.run(gctx, newEngine, chunk)
			perWorker[i] = results
			return err
		})
	}
	err := g.Wait()

	var all []Result
	for _, rs := range perWorker {
		all = append(all, rs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, err
}

type worker struct {
	num     int
	opts    Options
	suiteOf map[string]string
}

func (w *worker) printf(format string, args ...any) {
	fmt.Fprintf(w.opts.Progress, "[WORKER %d] "+format+"\n", append([]any{w.num}, args...)...)
}

func (w *worker) run(ctx context.Context, newEngine EngineFactory, tests []TestCase) ([]Result, error) {
	engine, err := newEngine(ctx)
	if err != nil {
		w.printf("Error: %v", err)
		return nil, fmt.Errorf("worker %d: start engine: %w", w.num, err)
	}
	defer func() { _ = engine.Quit() }()

	if err := engine.Init(ctx); err != nil {
		w.printf("Error: %v", err)
		return nil, fmt.Errorf("worker %d: %w", w.num, err)
	}
	if err := engine.IsReady(ctx); err != nil {
		w.printf("Error: %v", err)
		return nil, fmt.Errorf("worker %d: %w", w.num, err)
	}

	var results []Result
	for _, tc := range tests {
		w.printf("⏰ %s: RUN", tc.ID)
		r, err := w.runWithRetries(ctx, engine, tc)
		if err != nil {
			w.printf("Error: %v", err)
			return results, fmt.Errorf("worker %d: %s: %w", w.num, tc.ID, err)
		}
		if r.OK {
			w.printf("✅ %s: OK", tc.ID)
		} else {
			w.printf("❌ %s: FAIL (expected: %s, got: %s)", tc.ID, r.Expected, r.Got)
		}
		results = append(results, r)
		if err := sleep(ctx, w.opts.Rest); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (w *worker) runWithRetries(ctx context.Context, engine Engine, tc TestCase) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= w.opts.Attempts; attempt++ {
		r, err := w.runCase(ctx, engine, tc)
		if err == nil {
			return r, nil
		}
		lastErr = err
		w.printf("Failed %d/%d times with error %v", attempt, w.opts.Attempts, err)
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if attempt < w.opts.Attempts {
			if err := sleep(ctx, w.opts.RetryRest); err != nil {
				return Result{}, err
			}
		}
	}
	return Result{}, lastErr
}

func (w *worker) runCase(ctx context.Context, engine Engine, tc TestCase) (Result, error) {
	if err := engine.NewGame(); err != nil {
		return Result{}, err
	}
	if err := engine.Position(tc.FEN, nil); err != nil {
		return Result{}, err
	}
	if err := engine.IsReady(ctx); err != nil {
		return Result{}, err
	}

	params := []uci.GoParam{{Kind: uci.GoMoveTime, N: w.opts.Timeout.Milliseconds()}}
	if w.opts.Depth > 0 {
		params = append(params, uci.GoParam{Kind: uci.GoDepth, N: int64(w.opts.Depth)})
	}
	goCtx, cancel := context.WithTimeout(ctx, 2*w.opts.Timeout)
	defer cancel()
	res, err := engine.Go(goCtx, params...)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ID:       tc.ID,
		Suite:    w.suiteOf[tc.ID],
		FEN:      tc.FEN,
		Expected: strings.Join(tc.BestMoves, "/"),
		Got:      res.BestMove,
		OK:       tc.Passes(res.BestMove),
	}, nil
}

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
