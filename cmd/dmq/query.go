package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamaster/internal/filter"
	"github.com/JonMunkholm/datamaster/internal/query"
)

func newQueryCmd() *cobra.Command {
	var (
		in        inputFlags
		out       outputFlags
		statement string
	)

	cmd := &cobra.Command{
		Use:   "query [file]",
		Short: "Run a SELECT, UPDATE, DELETE or INSERT statement",
		Long: `Run one statement against the table read from file or stdin and print
the result. SELECT prints the selected rows; the other statements print the
whole table after the change.

  dmq query people.csv -e "SELECT name, city WHERE city='Oslo' ORDER BY name DESC"
  dmq query people.csv -e "UPDATE SET status='done' WHERE id='3'"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if statement == "" {
				return errors.New("a statement is required (-e)")
			}

			t, err := readTable(cmd, args, &in)
			if err != nil {
				return err
			}

			exec := query.Executor{
				Predicates: filter.Builtins(),
				Insert:     query.InsertValues,
			}
			res, err := exec.Execute(cmd.Context(), statement, t)
			if err != nil {
				return err
			}

			slog.Info("statement executed",
				"verb", res.Verb,
				"affected", res.Affected,
				"rows", res.Table.Len(),
			)
			return writeTable(cmd.OutOrStdout(), res.Table, &out)
		},
	}

	in.register(cmd)
	out.register(cmd, "out")
	cmd.Flags().StringVarP(&statement, "exec", "e", "", "statement to run")
	return cmd
}
