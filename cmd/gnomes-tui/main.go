// Package main implements gnomes-tui, a terminal chess client that can ask
// the move service to play.
package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gnomes/internal/appversion"
	"gnomes/pkg/bridge"
	"gnomes/pkg/config"
)

func newRootCmd() *cobra.Command {
	var robotURL string

	cmd := &cobra.Command{
		Use:           "gnomes-tui",
		Short:         "Play chess in the terminal against the move service",
		Version:       fmt.Sprintf("gnomes-tui %s", appversion.String()),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				return errors.New("gnomes-tui needs a terminal; use \"gnomes uci\" for piped input")
			}
			robot, err := newRobot(robotURL)
			if err != nil {
				return err
			}
			p := tea.NewProgram(newModel(robot))
			_, err = p.Run()
			return err
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Flags().StringVar(&robotURL, "robot-url", "", "move service URL (overrides config)")
	return cmd
}

// newRobot builds the move service client from the gnomes config.
func newRobot(url string) (*bridge.Client, error) {
	paths, err := config.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	cfg = cfg.ApplyEnv()
	if url != "" {
		cfg.Robot.URL = url
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return bridge.New(cfg.Bridge()), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running gnomes-tui: %v\n", err)
		os.Exit(1)
	}
}
