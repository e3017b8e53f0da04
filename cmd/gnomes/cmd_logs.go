package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"gnomes/pkg/adapter"
	"gnomes/pkg/journal"
)

// logsOpts holds flags for the logs command.
type logsOpts struct {
	db        string
	tail      int
	direction string
	since     time.Duration
	sessions  bool
}

// newLogsCmd creates the "gnomes logs" subcommand.
func newLogsCmd() *cobra.Command {
	var opts logsOpts

	cmd := &cobra.Command{
		Use:   "logs [session-id]",
		Short: "Show recorded UCI transcripts",
		Long:  "Displays lines recorded by \"gnomes uci --journal\".\nWithout a session id, lines from every session are shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.db
			if path == "" {
				cfg, paths, _, err := loadConfig("")
				if err != nil {
					return err
				}
				path = cfg.Journal.Path
				if path == "" {
					path = paths.JournalDB
				}
			}

			r, err := journal.OpenReader(path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer r.Close()

			w := cmd.OutOrStdout()
			if opts.sessions {
				return printSessions(cmd.Context(), r, w, opts.tail)
			}

			q := journal.QueryOpts{Direction: opts.direction, Limit: opts.tail}
			if len(args) == 1 {
				q.SessionID = args[0]
			}
			if opts.since > 0 {
				after := time.Now().UTC().Add(-opts.since)
				q.After = &after
			}
			return printTranscript(cmd.Context(), r, w, q)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "", "journal database (default $GNOMES_HOME/journal.db)")
	cmd.Flags().IntVar(&opts.tail, "tail", 50, "number of recent lines (or sessions) to show; 0 shows all")
	cmd.Flags().StringVar(&opts.direction, "direction", "", "only show in, out or err lines")
	cmd.Flags().DurationVar(&opts.since, "since", 0, "only show lines newer than this")
	cmd.Flags().BoolVar(&opts.sessions, "sessions", false, "list sessions instead of lines")

	return cmd
}

// printTranscript writes entries in the debug-log layout.
func printTranscript(ctx context.Context, r *journal.Reader, w io.Writer, q journal.QueryOpts) error {
	entries, err := r.Transcript(ctx, q)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no lines found")
		return nil
	}
	showSession := q.SessionID == ""
	for _, e := range entries {
		label := adapter.Direction(e.Direction).Label()
		if showSession {
			fmt.Fprintf(w, "[%s] [%s] [%s] %s\n", e.CreatedAt.Format(adapter.TimestampLayout), shortID(e.SessionID), label, e.Line)
		} else {
			fmt.Fprintf(w, "[%s] [%s] %s\n", e.CreatedAt.Format(adapter.TimestampLayout), label, e.Line)
		}
	}
	return nil
}

func printSessions(ctx context.Context, r *journal.Reader, w io.Writer, limit int) error {
	sessions, err := r.Sessions(ctx, limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions found")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s .. %s  %d lines\n",
			s.SessionID,
			s.First.Format(adapter.TimestampLayout),
			s.Last.Format(adapter.TimestampLayout),
			s.Lines)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
