package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamaster/internal/logging"
)

// inputFlags are shared by every command that reads a table.
type inputFlags struct {
	format    string
	tsv       bool
	noCR      bool
	noHeaders bool
}

// outputFlags are shared by every command that writes a table.
type outputFlags struct {
	format string
	crlf   bool
}

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:   "dmq",
		Short: "Query and convert delimited data files",
		Long: `dmq loads a CSV, TSV or JSON file (or stdin) into memory and runs a
statement, a filter or a conversion over it. Tables go to stdout, logs to
stderr.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel, logFormat))
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newQueryCmd(),
		newFilterCmd(),
		newConvertCmd(),
		newSumCmd(),
		newPivotCmd(),
		newDedupeCmd(),
		newReplaceCmd(),
		newSearchCmd(),
	)
	return root
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "from", "", "input format: csv, tsv or json (default: from the file extension, else csv)")
	cmd.Flags().BoolVar(&f.tsv, "tsv", false, "input is tab separated")
	cmd.Flags().BoolVar(&f.noCR, "nocr", false, "rows end with LF instead of CR LF (detected when not set)")
	cmd.Flags().BoolVar(&f.noHeaders, "no-headers", false, "the first row is data; fields are named 0, 1, ...")
}

func (f *outputFlags) register(cmd *cobra.Command, name string) {
	cmd.Flags().StringVar(&f.format, name, "csv", "output format: csv, tsv or json")
	cmd.Flags().BoolVar(&f.crlf, "crlf", false, "end output rows with CR LF")
}
