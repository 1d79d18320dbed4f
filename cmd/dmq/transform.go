package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamaster/internal/table"
)

func newSumCmd() *cobra.Command {
	var (
		in      inputFlags
		out     outputFlags
		cols    []string
		label   string
		byRow   bool
		average bool
	)

	cmd := &cobra.Command{
		Use:   "sum [file]",
		Short: "Append column totals (or a per-row total column)",
		Long: `Append a totals row summing every numeric column. With a label the first
column holds the label and is not summed. With --by-row a column holding
each row's total is appended instead. Cells that are not numbers are
skipped.

  dmq sum sales.csv --label Total
  dmq sum sales.csv --cols qty,price --avg
  dmq sum sales.csv --by-row --label RowTotal`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args, &in)
			if err != nil {
				return err
			}

			opts := table.SumOptions{Label: label, Refs: cols, Average: average}
			if byRow {
				t.SumRows(opts)
			} else {
				t.SumColumns(opts)
			}
			return writeTable(cmd.OutOrStdout(), t, &out)
		},
	}

	in.register(cmd)
	out.register(cmd, "out")
	cmd.Flags().StringSliceVar(&cols, "cols", nil, "columns to sum (default: all)")
	cmd.Flags().StringVar(&label, "label", "", "label for the totals")
	cmd.Flags().BoolVar(&byRow, "by-row", false, "append a total column instead of a totals row")
	cmd.Flags().BoolVar(&average, "avg", false, "average instead of sum")
	return cmd
}

func newPivotCmd() *cobra.Command {
	var (
		in  inputFlags
		out outputFlags
	)

	cmd := &cobra.Command{
		Use:   "pivot [file]",
		Short: "Swap rows and columns",
		Long: `Swap rows and columns. Values of the first column become the field names
and the remaining field names become the first column.

  dmq pivot months.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args, &in)
			if err != nil {
				return err
			}
			t.Pivot()
			return writeTable(cmd.OutOrStdout(), t, &out)
		},
	}

	in.register(cmd)
	out.register(cmd, "out")
	return cmd
}

func newDedupeCmd() *cobra.Command {
	var (
		in   inputFlags
		out  outputFlags
		cols []string
	)

	cmd := &cobra.Command{
		Use:   "dedupe [file]",
		Short: "Drop rows repeating an earlier row",
		Long: `Drop every row whose columns equal those of an earlier row. With --cols
only those columns are compared. The first occurrence is kept.

  dmq dedupe contacts.csv --cols email`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args, &in)
			if err != nil {
				return err
			}
			removed := t.RemoveDuplicates(cols...)
			slog.Info("duplicates removed", "removed", removed, "rows", t.Len())
			return writeTable(cmd.OutOrStdout(), t, &out)
		},
	}

	in.register(cmd)
	out.register(cmd, "out")
	cmd.Flags().StringSliceVar(&cols, "cols", nil, "columns to compare (default: all)")
	return cmd
}

func newReplaceCmd() *cobra.Command {
	var (
		in      inputFlags
		out     outputFlags
		cols    []string
		pattern string
		repl    string
	)

	cmd := &cobra.Command{
		Use:   "replace [file]",
		Short: "Rewrite cells matching a regular expression",
		Long: `Replace every case-insensitive match of a regular expression in the
selected columns. The replacement may use $1 style submatch references.

  dmq replace people.csv -p '^ms\.? ' -r '' --cols name`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pattern == "" {
				return errors.New("a pattern is required (-p)")
			}

			t, err := readTable(cmd, args, &in)
			if err != nil {
				return err
			}
			if err := t.Replace(pattern, repl, cols...); err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), t, &out)
		},
	}

	in.register(cmd)
	out.register(cmd, "out")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "regular expression to match")
	cmd.Flags().StringVarP(&repl, "repl", "r", "", "replacement text")
	cmd.Flags().StringSliceVar(&cols, "cols", nil, "columns to rewrite (default: all)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		in   inputFlags
		out  outputFlags
		cols []string
		rows bool
	)

	cmd := &cobra.Command{
		Use:   "search [file] <text>",
		Short: "Print the indices of rows containing text",
		Long: `Print the 0-based indices of rows where any selected column contains the
text, ignoring case. Reads stdin when only the text is given.

  dmq search people.csv oslo --cols city --rows`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[len(args)-1]

			t, err := readTable(cmd, args[:len(args)-1], &in)
			if err != nil {
				return err
			}
			hits := t.Search(text, cols...)

			if rows {
				matched := make([]table.Row, len(hits))
				for i, r := range hits {
					matched[i] = t.Rows[r]
				}
				return writeTable(cmd.OutOrStdout(), table.New(t.Fields, matched), &out)
			}
			w := cmd.OutOrStdout()
			for _, i := range hits {
				if _, err := fmt.Fprintln(w, strconv.Itoa(i)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	in.register(cmd)
	out.register(cmd, "out")
	cmd.Flags().StringSliceVar(&cols, "cols", nil, "columns to search (default: all)")
	cmd.Flags().BoolVar(&rows, "rows", false, "print matching rows instead of indices")
	return cmd
}
