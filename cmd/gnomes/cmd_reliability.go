package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gnomes/pkg/journal"
	"gnomes/pkg/reliability"
)

// reliabilityOpts holds flags for the reliability command.
type reliabilityOpts struct {
	engines     []string
	games       int
	maxPlies    int
	timeout     time.Duration
	timeoutRest time.Duration
	journal     bool
	journalDB   string
}

// newReliabilityCmd creates the "gnomes reliability" subcommand.
func newReliabilityCmd(g *globalOpts) *cobra.Command {
	var opts reliabilityOpts

	cmd := &cobra.Command{
		Use:   "reliability",
		Short: "Play two engines against each other and count failures",
		Long: "Plays n games between two engines and prints, as JSON, every move\n" +
			"the move service got wrong and every request that timed out.\n\n" +
			"Engines are given as proto:http,url:<url>, proto:uci,path:<path>\n" +
			"or proto:random[,seed:<n>].",
		Example: "  gnomes reliability --engine proto:http,url:http://localhost:8000/move --engine proto:random",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(opts.engines) != 2 {
				return fmt.Errorf("needed 2 engines, got %d", len(opts.engines))
			}
			log, err := g.logger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runReliability(cmd.Context(), opts, log, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVar(&opts.engines, "engine", nil, "engine spec (give exactly two)")
	cmd.Flags().IntVarP(&opts.games, "n", "n", 5, "number of games")
	cmd.Flags().IntVar(&opts.maxPlies, "max-plies", reliability.DefaultMaxPlies, "end a game after this many plies")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-move request timeout")
	cmd.Flags().DurationVar(&opts.timeoutRest, "timeout-rest", 5*time.Second, "pause after a timeout before asking again")
	cmd.Flags().BoolVar(&opts.journal, "journal", false, "save failures in the journal database")
	cmd.Flags().StringVar(&opts.journalDB, "journal-db", "", "journal database path (implies --journal)")

	return cmd
}

func runReliability(ctx context.Context, opts reliabilityOpts, log *zap.Logger, out io.Writer) error {
	playerOpts := reliability.PlayerOptions{Timeout: opts.timeout, TimeoutRest: opts.timeoutRest, Log: log}
	players := make([]reliability.Player, 0, 2)
	defer func() {
		for _, p := range players {
			if err := p.Close(); err != nil {
				log.Warn("close engine", zap.Error(err))
			}
		}
	}()
	for _, s := range opts.engines {
		spec, err := reliability.ParseEngineSpec(s)
		if err != nil {
			return err
		}
		p, err := reliability.NewPlayer(ctx, spec, playerOpts)
		if err != nil {
			return err
		}
		players = append(players, p)
	}

	checker := &reliability.Checker{White: players[0], Black: players[1], MaxPlies: opts.maxPlies, Log: log}
	stats, err := checker.RunN(ctx, opts.games)
	if err != nil {
		return err
	}

	if opts.journal || opts.journalDB != "" {
		if err := saveReliability(ctx, opts.journalDB, stats, log); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// failureRows flattens stats into journal rows.
func failureRows(stats reliability.Stats) []journal.FailureRow {
	rows := make([]journal.FailureRow, 0, len(stats.FailedMoves)+len(stats.Timeouts))
	for _, f := range stats.FailedMoves {
		rows = append(rows, journal.FailureRow{Kind: journal.KindFailedMove, FEN: f.FEN, Value: f.Move})
	}
	for _, t := range stats.Timeouts {
		rows = append(rows, journal.FailureRow{Kind: journal.KindTimeout, FEN: t.FEN, Value: strconv.Itoa(t.Count)})
	}
	return rows
}

func saveReliability(ctx context.Context, path string, stats reliability.Stats, log *zap.Logger) error {
	j, err := openJournal(path)
	if err != nil {
		return err
	}
	defer j.Close()

	runID := uuid.NewString()
	rows := failureRows(stats)
	if err := j.SaveReliabilityFailures(ctx, runID, rows); err != nil {
		return err
	}
	log.Info("saved reliability failures", zap.String("run", runID), zap.Int("rows", len(rows)))
	return nil
}
