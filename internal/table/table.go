// Package table provides the in-memory Record Table shared by the codec,
// the filter evaluator and the query executor.
//
// A Table is a list of field names plus rows of cells aligned to them. Cells
// hold plain scalars: string, a Go number, bool, or nil. Field names are not
// required to be unique; name lookups resolve to the first match.
//
// Table has no internal locking. Callers that share a table between
// goroutines must serialize access themselves (see core.Service).
package table

import (
	"sort"
	"strconv"
)

// Row is one record of a table, positionally aligned to Table.Fields.
type Row []any

// Table is a positional table of rows aligned to an ordered field list.
type Table struct {
	Fields []string
	Rows   []Row
}

// TableOptions controls how a raw table is turned into a Table.
type TableOptions struct {
	// Headers overwrite the default field names positionally. A shorter
	// list leaves the remaining fields named by their index.
	Headers []string

	// HeadersInFirstRow promotes the first row to the field list.
	// Ignored when Headers is set.
	HeadersInFirstRow bool
}

// New builds a table that takes ownership of rows. Rows are padded with nil
// or truncated so that every row has exactly len(fields) cells.
func New(fields []string, rows []Row) *Table {
	t := &Table{Fields: fields, Rows: rows}
	if t.Fields == nil {
		t.Fields = []string{}
	}
	if t.Rows == nil {
		t.Rows = []Row{}
	}
	for i, row := range t.Rows {
		t.Rows[i] = fit(row, len(t.Fields))
	}
	return t
}

// FromTable copies a raw table. Field names default to "0", "1", ... sized
// to the widest row, then are replaced according to opts.
func FromTable(rows [][]any, opts TableOptions) *Table {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	fields := indexFields(width)
	body := make([]Row, 0, len(rows))
	for _, row := range rows {
		body = append(body, append(Row(nil), row...))
	}

	switch {
	case len(opts.Headers) > 0:
		copy(fields, opts.Headers)
	case opts.HeadersInFirstRow && len(body) > 0:
		for i, v := range body[0] {
			fields[i] = String(v)
		}
		body = body[1:]
	}

	return New(fields, body)
}

// FromStrings is FromTable for codec output.
func FromStrings(rows [][]string, opts TableOptions) *Table {
	raw := make([][]any, len(rows))
	for i, row := range rows {
		r := make([]any, len(row))
		for j, cell := range row {
			r[j] = cell
		}
		raw[i] = r
	}
	return FromTable(raw, opts)
}

// FromRecordset builds a table from field-keyed records. When no fields are
// given, the sorted keys of the first record are used. Keys missing from a
// record become nil cells; keys not in the field list are ignored.
func FromRecordset(records []map[string]any, fields ...string) *Table {
	if len(fields) == 0 && len(records) > 0 {
		for k := range records[0] {
			fields = append(fields, k)
		}
		sort.Strings(fields)
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(fields))
		for i, f := range fields {
			row[i] = rec[f]
		}
		rows = append(rows, row)
	}
	return New(append([]string(nil), fields...), rows)
}

// Recordset returns the table as field-keyed records. With duplicate field
// names the last column wins.
func (t *Table) Recordset() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(t.Fields))
		for j, f := range t.Fields {
			rec[f] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Strings returns the rows with every cell rendered by String.
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(row))
		for j, v := range row {
			r[j] = String(v)
		}
		out[i] = r
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	rows := make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append(Row(nil), row...)
	}
	return &Table{
		Fields: append([]string{}, t.Fields...),
		Rows:   rows,
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Width returns the number of fields.
func (t *Table) Width() int {
	return len(t.Fields)
}

// FieldIndex resolves a field reference to a column index. A reference
// matches a field name exactly (first occurrence wins); failing that, a
// reference made only of ASCII digits is a 0-based column index.
func (t *Table) FieldIndex(ref string) (int, bool) {
	return FieldIndex(t.Fields, ref)
}

// FieldIndex resolves ref against fields. See Table.FieldIndex.
func FieldIndex(fields []string, ref string) (int, bool) {
	for i, f := range fields {
		if f == ref {
			return i, true
		}
	}
	if !isDigits(ref) {
		return -1, false
	}
	i, err := strconv.Atoi(ref)
	if err != nil || i < 0 || i >= len(fields) {
		return -1, false
	}
	return i, true
}

// Cell returns the value at row i in the referenced column.
func (t *Table) Cell(i int, ref string) (any, bool) {
	col, ok := t.FieldIndex(ref)
	if !ok || i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[i][col], true
}

// SetCell sets the value at row i in the referenced column. It reports
// whether the cell exists.
func (t *Table) SetCell(i int, ref string, v any) bool {
	col, ok := t.FieldIndex(ref)
	if !ok || i < 0 || i >= len(t.Rows) {
		return false
	}
	t.Rows[i][col] = v
	return true
}

// Record returns row i as a field-keyed record.
func (t *Table) Record(i int) (map[string]any, bool) {
	if i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	rec := make(map[string]any, len(t.Fields))
	for j, f := range t.Fields {
		rec[f] = t.Rows[i][j]
	}
	return rec, true
}

// Column returns the values of the referenced column. With distinct set,
// repeated values (by String form) are dropped, keeping first occurrences.
func (t *Table) Column(ref string, distinct bool) ([]any, bool) {
	col, ok := t.FieldIndex(ref)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(t.Rows))
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		v := row[col]
		if distinct {
			key := typedKey(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, v)
	}
	return out, true
}

func fit(row Row, width int) Row {
	switch {
	case len(row) == width:
		return row
	case len(row) > width:
		return row[:width:width]
	default:
		out := make(Row, width)
		copy(out, row)
		return out
	}
}

func indexFields(n int) []string {
	fields := make([]string, n)
	for i := range fields {
		fields[i] = strconv.Itoa(i)
	}
	return fields
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
