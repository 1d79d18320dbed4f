// Package csvcodec encodes and decodes CSV/TSV text.
//
// The decoder is a single left-to-right scan that never fails: malformed
// input degrades into best-effort cells (an unterminated quote swallows the
// rest of the input into the final cell). The encoder always quotes every
// field, so Decode(Encode(t)) returns t for any table of strings when both
// sides use the same separator and line terminator.
//
// Neither direction infers types. Decoded cells are strings; callers that
// want numbers or booleans convert them afterwards.
package csvcodec

import (
	"regexp"
	"strings"

	"github.com/JonMunkholm/datamaster/internal/table"
)

const (
	comma = ","
	tab   = "\t"
	crlf  = "\r\n"
	lf    = "\n"
	quote = '"'
)

// DecodeOptions selects the dialect read by Decode.
type DecodeOptions struct {
	// TSV separates cells with a tab instead of a comma.
	TSV bool

	// NoCR terminates rows with a bare line feed instead of CR+LF.
	NoCR bool

	// MaxBytes caps how much DecodeReader reads. Zero means no limit.
	MaxBytes int64
}

func (o DecodeOptions) separator() string {
	if o.TSV {
		return tab
	}
	return comma
}

func (o DecodeOptions) terminator() string {
	if o.NoCR {
		return lf
	}
	return crlf
}

// EncodeOptions controls Encode output.
type EncodeOptions struct {
	// NewLine terminates every line. Defaults to CR+LF.
	NewLine string

	// StartRow and StartCol skip leading rows and columns of the body, for
	// partial exports. The header line is not affected by StartCol.
	StartRow int
	StartCol int

	// RemoveNewLines collapses embedded CR, LF and CR+LF to a single space.
	RemoveNewLines bool

	// SkipFields omits the header line.
	SkipFields bool

	// TSV separates cells with a tab instead of a comma.
	TSV bool
}

// Decode splits text into rows of cells.
//
// At each position an unstarted scanner tries, in order: an opening quote
// (the cell becomes protected), a separator (an empty cell), a row
// terminator (the pending row is emitted), and otherwise starts a plain
// cell. Inside a protected cell `""` is a literal quote, a quote followed by
// a separator or terminator closes the cell, and anything else, including
// raw separators and newlines, is kept. A plain cell ends at the next
// separator or terminator.
func Decode(text string, opts DecodeOptions) [][]string {
	sep := opts.separator()
	term := opts.terminator()

	rows := [][]string{}
	var row []string
	var cell strings.Builder
	started := false
	protected := false
	cursor := 0

	// next consumes s if the input continues with it.
	next := func(s string) bool {
		if strings.HasPrefix(text[cursor:], s) {
			cursor += len(s)
			return true
		}
		return false
	}
	endCell := func() {
		row = append(row, cell.String())
		cell.Reset()
		started = false
		protected = false
	}
	endRow := func() {
		if row == nil {
			row = []string{}
		}
		rows = append(rows, row)
		row = nil
	}

	for cursor < len(text) {
		switch {
		case started && protected:
			switch {
			case next(`"` + sep):
				endCell()
			case next(`"` + term):
				endCell()
				endRow()
			case next(`""`):
				cell.WriteByte(quote)
			case text[cursor] == quote && cursor == len(text)-1:
				// closing quote of the last cell
				cursor++
				endCell()
			default:
				cell.WriteByte(text[cursor])
				cursor++
			}

		case started:
			switch {
			case next(sep):
				endCell()
			case next(term):
				endCell()
				endRow()
			case next(`""`):
				cell.WriteByte(quote)
			default:
				cell.WriteByte(text[cursor])
				cursor++
			}

		default:
			switch {
			case next(`"`):
				started = true
				protected = true
			case next(sep):
				endCell()
			case next(term):
				cell.Reset()
				endRow()
			default:
				cell.WriteByte(text[cursor])
				started = true
				cursor++
			}
		}
	}

	if started {
		endCell()
	}
	if len(row) > 0 {
		endRow()
	}
	return rows
}

var (
	quoteRunRegex = regexp.MustCompile(`"{2,}`)
	newLineRegex  = regexp.MustCompile(`\r\n|\r|\n`)
)

// Encode renders fields and rows as fully quoted delimited text. Every line,
// including the last, ends with opts.NewLine.
func Encode(rows []table.Row, fields []string, opts EncodeOptions) string {
	newLine := opts.NewLine
	if newLine == "" {
		newLine = crlf
	}
	sep := comma
	if opts.TSV {
		sep = tab
	}

	var b strings.Builder
	writeLine := func(cells []any) {
		for i, v := range cells {
			if i > 0 {
				b.WriteString(sep)
			}
			b.WriteString(escape(v, opts.RemoveNewLines))
		}
		b.WriteString(newLine)
	}

	if !opts.SkipFields {
		header := make([]any, len(fields))
		for i, f := range fields {
			header[i] = f
		}
		writeLine(header)
	}

	for r := max(opts.StartRow, 0); r < len(rows); r++ {
		row := rows[r]
		start := min(max(opts.StartCol, 0), len(row))
		writeLine(row[start:])
	}

	return b.String()
}

// EncodeTable is Encode over a table's own rows and fields.
func EncodeTable(t *table.Table, opts EncodeOptions) string {
	return Encode(t.Rows, t.Fields, opts)
}

// escape quotes one cell. Runs of quotes are first collapsed to one so that
// values which were already escaped once are not escaped twice.
func escape(v any, removeNewLines bool) string {
	s := table.String(v)
	s = quoteRunRegex.ReplaceAllString(s, `"`)
	s = strings.ReplaceAll(s, `"`, `""`)
	if removeNewLines {
		s = newLineRegex.ReplaceAllString(s, " ")
	}
	return `"` + s + `"`
}
