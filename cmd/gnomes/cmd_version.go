package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gnomes/internal/appversion"
)

// newVersionCmd creates the "gnomes version" subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gnomes version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gnomes %s\n", appversion.String())
			return nil
		},
	}
}
