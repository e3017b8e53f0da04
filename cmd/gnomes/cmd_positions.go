package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gnomes/pkg/journal"
	"gnomes/pkg/suite"
	"gnomes/pkg/uciclient"
)

// positionsOpts holds flags for the positions command.
type positionsOpts struct {
	engine     string
	engineArgs []string
	suites     []string
	epdFiles   []string
	match      []string
	workers    int
	timeout    time.Duration
	depth      int
	rest       time.Duration
	stagger    time.Duration
	attempts   int
	retryRest  time.Duration
	shuffle    bool
	seed       uint64
	report     string
	journal    bool
	journalDB  string
}

// newPositionsCmd creates the "gnomes positions" subcommand.
func newPositionsCmd(g *globalOpts) *cobra.Command {
	var opts positionsOpts

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Run EPD position suites against a UCI engine",
		Long: "Runs the built-in suites (Bratko-Kopec, Win at Chess, Colditz,\n" +
			"Zugzwang, Mate, Advantage) or EPD files against a UCI engine and\n" +
			"writes a markdown report. Progress goes to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.workers <= 0 {
				return fmt.Errorf("bad workers: %d. Should be > 0", opts.workers)
			}
			log, err := g.logger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			seedSet := cmd.Flags().Changed("seed")
			return runPositions(cmd.Context(), opts, seedSet, log, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.engine, "engine", "", "path to engine executable")
	cmd.Flags().StringArrayVar(&opts.engineArgs, "engine-arg", nil, "argument passed to the engine (repeatable)")
	cmd.Flags().StringSliceVar(&opts.suites, "suite", nil, "only run these built-in suites, by name")
	cmd.Flags().StringArrayVar(&opts.epdFiles, "epd", nil, "run this EPD file instead of the built-in suites (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.match, "match", "m", nil, "only run tests whose id matches this regex (repeatable)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "number of workers")
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 10*time.Second, "movetime per test")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "depth to search (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.rest, "rest", time.Second, "time to rest between tests")
	cmd.Flags().DurationVar(&opts.stagger, "stagger", time.Second, "delay between worker startups")
	cmd.Flags().IntVar(&opts.attempts, "attempts", 10, "tries per test before giving up")
	cmd.Flags().DurationVar(&opts.retryRest, "retry-rest", time.Second, "time to rest between tries")
	cmd.Flags().BoolVar(&opts.shuffle, "shuffle", false, "shuffle test order")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for shuffling tests (default random)")
	cmd.Flags().StringVar(&opts.report, "report", "", "write the report here instead of stdout")
	cmd.Flags().BoolVar(&opts.journal, "journal", false, "save results in the journal database")
	cmd.Flags().StringVar(&opts.journalDB, "journal-db", "", "journal database path (implies --journal)")
	_ = cmd.MarkFlagRequired("engine")

	return cmd
}

// loadSuites returns the EPD files when given, else the selected built-ins.
func loadSuites(epdFiles, names []string) ([]suite.Suite, error) {
	if len(epdFiles) > 0 {
		out := make([]suite.Suite, 0, len(epdFiles))
		for _, path := range epdFiles {
			s, err := readEPDFile(path)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}

	builtin, err := suite.Builtin()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return builtin, nil
	}
	var out []suite.Suite
	for _, name := range names {
		found := false
		for _, s := range builtin {
			if strings.EqualFold(s.Name, name) {
				out = append(out, s)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown suite %q", name)
		}
	}
	return out, nil
}

func readEPDFile(path string) (suite.Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return suite.Suite{}, fmt.Errorf("open epd: %w", err)
	}
	defer f.Close()
	s, err := suite.ParseEPD(f)
	if err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func runPositions(ctx context.Context, opts positionsOpts, seedSet bool, log *zap.Logger, out, progress io.Writer) error {
	suites, err := loadSuites(opts.epdFiles, opts.suites)
	if err != nil {
		return err
	}
	seed := opts.seed
	if opts.shuffle && !seedSet {
		seed = rand.Uint64()
	}
	tests, err := suite.Select(suites, suite.Selection{Match: opts.match, Shuffle: opts.shuffle, Seed: seed})
	if err != nil {
		return err
	}
	log.Info("running position tests",
		zap.Int("tests", len(tests)),
		zap.Int("workers", opts.workers),
		zap.Uint64("seed", seed))

	factory := func(context.Context) (suite.Engine, error) {
		e, err := uciclient.Start(opts.engine, opts.engineArgs, uciclient.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	results, err := suite.Run(ctx, suites, tests, factory, suite.Options{
		Workers:   opts.workers,
		Timeout:   opts.timeout,
		Depth:     opts.depth,
		Rest:      opts.rest,
		Stagger:   opts.stagger,
		Attempts:  opts.attempts,
		RetryRest: opts.retryRest,
		Progress:  progress,
	})
	if err != nil {
		return err
	}

	if opts.journal || opts.journalDB != "" {
		if err := saveSuiteResults(ctx, opts.journalDB, results, log); err != nil {
			return err
		}
	}

	report := suite.Report(suites, results) + "\n"
	if opts.report == "" {
		_, err = io.WriteString(out, report)
		return err
	}
	if err := os.WriteFile(opts.report, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// openJournal opens path or, when empty, the configured journal.
func openJournal(path string) (*journal.Journal, error) {
	if path == "" {
		cfg, paths, _, err := loadConfig("")
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.Path
		if path == "" {
			path = paths.JournalDB
		}
	}
	return journal.Open(path)
}

func saveSuiteResults(ctx context.Context, path string, results []suite.Result, log *zap.Logger) error {
	j, err := openJournal(path)
	if err != nil {
		return err
	}
	defer j.Close()

	rows := make([]journal.SuiteRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, journal.SuiteRow{
			TestID:   r.ID,
			Suite:    r.Suite,
			FEN:      r.FEN,
			Expected: r.Expected,
			Got:      r.Got,
			OK:       r.OK,
		})
	}
	runID := uuid.NewString()
	if err := j.SaveSuiteResults(ctx, runID, rows); err != nil {
		return err
	}
	log.Info("saved suite results", zap.String("run", runID), zap.Int("rows", len(rows)))
	return nil
}
