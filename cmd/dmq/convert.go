package main

import (
	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	var (
		in  inputFlags
		out outputFlags
	)

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Re-encode a table as CSV, TSV or JSON",
		Long: `Read a table and write it in another format. JSON output is an array of
objects keyed by field name.

  dmq convert people.tsv --to csv
  dmq convert people.csv --to json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args, &in)
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), t, &out)
		},
	}

	in.register(cmd)
	out.register(cmd, "to")
	return cmd
}
