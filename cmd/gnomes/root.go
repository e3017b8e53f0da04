package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gnomes/internal/appversion"
)

// globalOpts holds flags shared by every subcommand.
type globalOpts struct {
	logLevel  string
	logFormat string
}

// logger builds the side-channel logger on the command's stderr.
func (g *globalOpts) logger(cmd *cobra.Command) (*zap.Logger, error) {
	return newLogger(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
}

// newRootCmd creates the root gnomes command with all subcommands attached.
func newRootCmd() *cobra.Command {
	g := &globalOpts{}
	cmd := &cobra.Command{
		Use:           "gnomes",
		Short:         "Gnomes chess tooling",
		Long:          "gnomes bridges an HTTP move service to the UCI protocol and\nruns position suites and reliability checks against engines.",
		Version:       fmt.Sprintf("gnomes %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "json", "log format (json or console)")

	cmd.AddCommand(
		newUCICmd(g),
		newPositionsCmd(g),
		newReliabilityCmd(g),
		newEPDCmd(),
		newLogwrapCmd(),
		newLogsCmd(),
		newVersionCmd(),
	)

	return cmd
}

// exitError carries a child process exit code through cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
