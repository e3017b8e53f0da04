package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gnomes/pkg/adapter"
	"gnomes/pkg/bridge"
	"gnomes/pkg/config"
	"gnomes/pkg/journal"
)

// uciOpts holds flags for the uci command.
type uciOpts struct {
	configPath  string
	robotURL    string
	journal     bool
	journalPath string
	debugLog    string
	watch       bool
}

// newUCICmd creates the "gnomes uci" subcommand.
func newUCICmd(g *globalOpts) *cobra.Command {
	var opts uciOpts

	cmd := &cobra.Command{
		Use:   "uci",
		Short: "Speak UCI on stdin/stdout, asking the move service for moves",
		Long: "Runs the UCI adapter. A GUI or test harness writes UCI commands to\n" +
			"stdin; moves come from the HTTP move service (the robot).\n" +
			"Diagnostics go to stderr, never stdout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := g.logger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if f, ok := cmd.InOrStdin().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
				fmt.Fprintln(cmd.ErrOrStderr(), "gnomes: reading UCI commands from the terminal; type \"uci\" to start, \"quit\" to leave")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runUCI(ctx, opts, log, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default $GNOMES_HOME/config.yaml)")
	cmd.Flags().StringVar(&opts.robotURL, "robot-url", "", "move service URL (overrides config)")
	cmd.Flags().BoolVar(&opts.journal, "journal", false, "record the transcript in the journal database")
	cmd.Flags().StringVar(&opts.journalPath, "journal-db", "", "journal database path (implies --journal)")
	cmd.Flags().StringVar(&opts.debugLog, "debug-log", "", "append a timestamped copy of every line to this file")
	cmd.Flags().BoolVar(&opts.watch, "watch-config", false, "reload robot settings when the config file changes")

	return cmd
}

// loadConfig resolves the config path, loads it and applies env and flag
// overrides.
func loadConfig(path string) (config.Config, *config.Paths, string, error) {
	paths, err := config.ResolvePaths()
	if err != nil {
		return config.Config{}, nil, "", fmt.Errorf("resolve paths: %w", err)
	}
	if path == "" {
		path = paths.Config
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, paths, path, err
	}
	return cfg.ApplyEnv(), paths, path, nil
}

func runUCI(ctx context.Context, opts uciOpts, log *zap.Logger, in io.Reader, out io.Writer) error {
	cfg, paths, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.robotURL != "" {
		cfg.Robot.URL = opts.robotURL
	}
	if opts.journalPath != "" {
		cfg.Journal.Path = opts.journalPath
		cfg.Journal.Enabled = true
	}
	if opts.journal {
		cfg.Journal.Enabled = true
	}
	if opts.debugLog != "" {
		cfg.DebugLog = opts.debugLog
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sessionID := uuid.NewString()
	var mirrors []adapter.Mirror

	if cfg.DebugLog != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DebugLog), 0o755); err != nil {
			return fmt.Errorf("create debug log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.DebugLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer f.Close()
		mirrors = append(mirrors, adapter.NewTextMirror(f))
	}

	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = paths.JournalDB
		}
		j, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer j.Close()
		mirrors = append(mirrors, j.NewSink(sessionID, func(err error) {
			log.Warn("journal write failed", zap.Error(err))
		}))
	}

	robot := bridge.New(cfg.Bridge())
	a := adapter.New(
		adapter.Config{Name: cfg.Adapter.Name, Author: cfg.Adapter.Author},
		robot,
		out,
		adapter.WithLogger(log),
		adapter.WithMirror(adapter.Multi(mirrors...)),
		adapter.WithSessionID(sessionID),
	)
	log.Info("uci adapter starting",
		zap.String("session", sessionID),
		zap.String("robot", cfg.Robot.URL),
		zap.Bool("journal", cfg.Journal.Enabled))

	if opts.watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := config.Watch(watchCtx, cfgPath,
				func(next config.Config) {
					if opts.robotURL != "" {
						next.Robot.URL = opts.robotURL
					}
					robot.SetConfig(next.Bridge())
					log.Info("robot settings reloaded", zap.String("robot", next.Robot.URL))
				},
				func(err error) { log.Warn("config reload failed", zap.Error(err)) })
			if err != nil && watchCtx.Err() == nil {
				log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	return a.Run(ctx, in)
}
