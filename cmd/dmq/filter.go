package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamaster/internal/filter"
	"github.com/JonMunkholm/datamaster/internal/table"
)

func newFilterCmd() *cobra.Command {
	var (
		in    inputFlags
		out   outputFlags
		where string
		rows  bool
	)

	cmd := &cobra.Command{
		Use:   "filter [file]",
		Short: "Print the indices of rows matching a WHERE expression",
		Long: `Evaluate a WHERE expression against every row and print the 0-based
indices of the matches, one per line. With --rows the matching rows are
printed instead.

  dmq filter people.csv -w "city='Oslo' AND name!='A%'"
  dmq filter people.csv -w "amount='$between(10, 20)'" --rows`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if where == "" {
				return errors.New("an expression is required (-w)")
			}

			t, err := readTable(cmd, args, &in)
			if err != nil {
				return err
			}

			expr, err := filter.Compile(where, t.Fields, filter.Builtins())
			if err != nil {
				return err
			}
			res := expr.Filter(t)
			slog.Info("filter evaluated", "matched", len(res.Indices), "rows", t.Len())

			if rows {
				return writeTable(cmd.OutOrStdout(), table.New(t.Fields, res.Rows), &out)
			}
			w := cmd.OutOrStdout()
			for _, i := range res.Indices {
				if _, err := fmt.Fprintln(w, strconv.Itoa(i)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	in.register(cmd)
	out.register(cmd, "out")
	cmd.Flags().StringVarP(&where, "where", "w", "", "filter expression")
	cmd.Flags().BoolVar(&rows, "rows", false, "print matching rows instead of indices")
	return cmd
}
