package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newEPDCmd creates the "gnomes epd" subcommand.
func newEPDCmd() *cobra.Command {
	var withHeader bool

	cmd := &cobra.Command{
		Use:   "epd <file>",
		Short: "Convert an EPD file to JSON test cases",
		Long:  "Reads an EPD file and prints its positions as JSON, with bm and am\nmoves converted to long algebraic notation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readEPDFile(args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if withHeader {
				return enc.Encode(struct {
					Name    string `json:"name,omitempty"`
					Comment string `json:"comment,omitempty"`
					Tests   any    `json:"tests"`
				}{s.Name, s.Comment, s.Tests})
			}
			if s.Tests == nil {
				return fmt.Errorf("%s: no positions", args[0])
			}
			return enc.Encode(s.Tests)
		},
	}

	cmd.Flags().BoolVar(&withHeader, "with-header", false, "wrap the tests with the suite name and comment")

	return cmd
}
