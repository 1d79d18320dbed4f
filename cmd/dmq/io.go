package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datamaster/internal/csvcodec"
	"github.com/JonMunkholm/datamaster/internal/table"
)

// readTable loads the file named by args[0], or stdin when there is no
// argument or it is "-".
func readTable(cmd *cobra.Command, args []string, in *inputFlags) (*table.Table, error) {
	var (
		r    io.Reader = cmd.InOrStdin()
		path string
	)
	if len(args) > 0 && args[0] != "-" {
		path = args[0]
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	switch inputFormat(in, path) {
	case "json":
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode JSON records: %w", err)
		}
		return table.FromRecordset(records), nil
	case "tsv":
		return decodeDelimited(cmd, data, in, true)
	case "csv":
		return decodeDelimited(cmd, data, in, false)
	default:
		return nil, fmt.Errorf("unknown input format %q", in.format)
	}
}

func inputFormat(in *inputFlags, path string) string {
	switch {
	case in.format != "":
		return strings.ToLower(in.format)
	case in.tsv:
		return "tsv"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return "tsv"
	case ".json":
		return "json"
	default:
		return "csv"
	}
}

func decodeDelimited(cmd *cobra.Command, data []byte, in *inputFlags, tsv bool) (*table.Table, error) {
	noCR := in.noCR
	if !cmd.Flags().Changed("nocr") {
		noCR = !bytes.Contains(data, []byte("\r\n")) && bytes.Contains(data, []byte("\n"))
	}

	cells, err := csvcodec.DecodeReader(bytes.NewReader(data), csvcodec.DecodeOptions{TSV: tsv, NoCR: noCR})
	if err != nil {
		return nil, err
	}
	return table.FromStrings(cells, table.TableOptions{HeadersInFirstRow: !in.noHeaders}), nil
}

// writeTable prints t in the requested format.
func writeTable(w io.Writer, t *table.Table, out *outputFlags) error {
	newLine := "\n"
	if out.crlf {
		newLine = "\r\n"
	}

	switch strings.ToLower(out.format) {
	case "csv", "":
		_, err := io.WriteString(w, csvcodec.EncodeTable(t, csvcodec.EncodeOptions{NewLine: newLine}))
		return err
	case "tsv":
		_, err := io.WriteString(w, csvcodec.EncodeTable(t, csvcodec.EncodeOptions{NewLine: newLine, TSV: true}))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t.Recordset())
	default:
		return fmt.Errorf("unknown output format %q", out.format)
	}
}
