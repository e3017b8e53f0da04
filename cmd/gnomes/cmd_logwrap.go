package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/spf13/cobra"

	"gnomes/pkg/adapter"
)

// newLogwrapCmd creates the "gnomes logwrap" subcommand.
func newLogwrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logwrap <logfile> -- <program> [args...]",
		Short: "Run a program and log its stdin, stdout and stderr",
		Long: "Runs program with the given arguments, passing standard streams\n" +
			"through unchanged and appending every line to logfile as\n" +
			"\"[timestamp] [stdin|stdout|stderr] line\". Useful for seeing what a\n" +
			"GUI sends to an engine. Exits with the program's exit code.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			args = childArgs(args)
			if len(args) < 2 {
				return errors.New("logwrap needs a program to run")
			}
			f, err := os.OpenFile(args[0], os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer f.Close()

			code, err := logwrap(cmd.Context(), adapter.NewTextMirror(f), args[1], args[2:],
				cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	// Flags after the logfile belong to the child.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// childArgs drops the "--" separating the logfile from the program. Flag
// parsing stops at the logfile, so cobra leaves the separator in args.
func childArgs(args []string) []string {
	if len(args) > 1 && args[1] == "--" {
		return append([]string{args[0]}, args[2:]...)
	}
	return args
}

// logwrap runs name with args, copying each stream through and mirroring
// its lines. It returns the child's exit code.
func logwrap(ctx context.Context, mirror adapter.Mirror, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	child := exec.CommandContext(ctx, name, args...)
	childIn, err := child.StdinPipe()
	if err != nil {
		return 0, fmt.Errorf("child stdin: %w", err)
	}
	childOut, err := child.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("child stdout: %w", err)
	}
	childErr, err := child.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("child stderr: %w", err)
	}
	if err := child.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", name, err)
	}

	// stdin is not waited on: the child may exit while we block reading it.
	go func() {
		forwardLines(stdin, childIn, mirror, adapter.DirIn)
		_ = childIn.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); forwardLines(childOut, stdout, mirror, adapter.DirOut) }()
	go func() { defer wg.Done(); forwardLines(childErr, stderr, mirror, adapter.DirErr) }()
	wg.Wait()

	err = child.Wait()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("wait %s: %w", name, err)
	}
	return 0, nil
}

// forwardLines copies r to w line by line, mirroring each line. A final
// line without a newline is forwarded as is.
func forwardLines(r io.Reader, w io.Writer, mirror adapter.Mirror, dir adapter.Direction) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if _, werr := io.WriteString(w, line); werr != nil {
				return
			}
			mirror.Line(dir, trimNewline(line))
		}
		if err != nil {
			return
		}
	}
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
		if n := len(s); n > 0 && s[n-1] == '\r' {
			s = s[:n-1]
		}
	}
	return s
}
