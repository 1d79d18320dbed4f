package table

// AddRow inserts values as a new row at position at. Values are padded with
// nil or truncated to the table width. A negative at appends; positions past
// the end are clamped.
func (t *Table) AddRow(values []any, at int) {
	row := fit(append(Row(nil), values...), len(t.Fields))
	t.insertRow(row, at)
}

// AddRecord inserts a field-keyed record as a new row. Keys that do not
// resolve to a field are ignored; missing fields are nil.
func (t *Table) AddRecord(rec map[string]any, at int) {
	row := make(Row, len(t.Fields))
	for k, v := range rec {
		if col, ok := t.FieldIndex(k); ok {
			row[col] = v
		}
	}
	t.insertRow(row, at)
}

func (t *Table) insertRow(row Row, at int) {
	if at < 0 || at >= len(t.Rows) {
		t.Rows = append(t.Rows, row)
		return
	}
	t.Rows = append(t.Rows, nil)
	copy(t.Rows[at+1:], t.Rows[at:])
	t.Rows[at] = row
}

// RemoveRow deletes row i. Out-of-range indexes are ignored.
func (t *Table) RemoveRow(i int) bool {
	if i < 0 || i >= len(t.Rows) {
		return false
	}
	t.Rows = append(t.Rows[:i], t.Rows[i+1:]...)
	return true
}

// AddColumn inserts a column named name before the referenced column, or at
// the end when before is empty or unresolvable. values fill the column top
// to bottom; missing values are nil and extras are dropped.
func (t *Table) AddColumn(name string, values []any, before string) {
	at := len(t.Fields)
	if before != "" {
		if col, ok := t.FieldIndex(before); ok {
			at = col
		}
	}

	t.Fields = insertAt(t.Fields, at, name)
	for i, row := range t.Rows {
		var v any
		if i < len(values) {
			v = values[i]
		}
		t.Rows[i] = insertAt(row, at, v)
	}
}

// RemoveColumn deletes the referenced column.
func (t *Table) RemoveColumn(ref string) bool {
	col, ok := t.FieldIndex(ref)
	if !ok {
		return false
	}
	t.Fields = append(t.Fields[:col], t.Fields[col+1:]...)
	for i, row := range t.Rows {
		t.Rows[i] = append(row[:col], row[col+1:]...)
	}
	return true
}

// SetFieldNames replaces field names positionally. Extra names are ignored;
// a shorter list leaves the remaining names unchanged.
func (t *Table) SetFieldNames(names []string) {
	n := min(len(names), len(t.Fields))
	copy(t.Fields[:n], names[:n])
}

// FieldRename maps an existing field reference to a new name.
type FieldRename struct {
	From string
	To   string
}

// RenameFields applies renames in order. With reorder set, the table is then
// projected onto the new names in the order given.
func (t *Table) RenameFields(renames []FieldRename, reorder bool) {
	for _, r := range renames {
		if col, ok := t.FieldIndex(r.From); ok {
			t.Fields[col] = r.To
		}
	}
	if !reorder {
		return
	}
	refs := make([]string, len(renames))
	for i, r := range renames {
		refs[i] = r.To
	}
	t.Reorder(refs)
}

// Reorder projects the table onto refs, in the order given. Refs that do not
// resolve are dropped. A ref may repeat a column.
func (t *Table) Reorder(refs []string) {
	cols := make([]int, 0, len(refs))
	for _, ref := range refs {
		if col, ok := t.FieldIndex(ref); ok {
			cols = append(cols, col)
		}
	}

	fields := make([]string, len(cols))
	for i, col := range cols {
		fields[i] = t.Fields[col]
	}
	for r, row := range t.Rows {
		out := make(Row, len(cols))
		for i, col := range cols {
			out[i] = row[col]
		}
		t.Rows[r] = out
	}
	t.Fields = fields
}

// FormatColumn replaces every cell of the referenced column with fn(cell).
func (t *Table) FormatColumn(ref string, fn func(any) any) bool {
	col, ok := t.FieldIndex(ref)
	if !ok {
		return false
	}
	for _, row := range t.Rows {
		row[col] = fn(row[col])
	}
	return true
}

// FormatRow replaces every cell of row i with fn(cell).
func (t *Table) FormatRow(i int, fn func(any) any) bool {
	if i < 0 || i >= len(t.Rows) {
		return false
	}
	for c, v := range t.Rows[i] {
		t.Rows[i][c] = fn(v)
	}
	return true
}

func insertAt[T any](s []T, at int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[at+1:], s[at:])
	s[at] = v
	return s
}
