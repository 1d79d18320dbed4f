package table

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// SumOptions configures SumColumns and SumRows.
type SumOptions struct {
	// Label names the totals. For SumColumns it is written into the first
	// column of the totals row; for SumRows it names the new column
	// (default "Total").
	Label string

	// Refs limits which columns (SumColumns) are summed. Empty means all
	// columns, minus the first when Label is set.
	Refs []string

	// Rows limits which rows (SumRows) are summed. Empty means all rows.
	Rows []int

	// Average divides each sum by the count of numeric cells.
	Average bool
}

// SumColumns appends a totals row. Cells that ParseNumber cannot read are
// skipped. Columns not summed are nil in the totals row.
func (t *Table) SumColumns(opts SumOptions) {
	var cols []int
	if len(opts.Refs) == 0 {
		start := 0
		if opts.Label != "" {
			start = 1
		}
		for i := start; i < len(t.Fields); i++ {
			cols = append(cols, i)
		}
	} else {
		for _, ref := range opts.Refs {
			if i, ok := t.FieldIndex(ref); ok {
				cols = append(cols, i)
			}
		}
	}

	totals := make([]any, len(t.Fields))
	if opts.Label != "" && len(totals) > 0 {
		totals[0] = opts.Label
	}
	for _, c := range cols {
		cells := make([]any, len(t.Rows))
		for r, row := range t.Rows {
			cells[r] = row[c]
		}
		totals[c] = sum(cells, opts.Average)
	}

	t.AddRow(totals, -1)
}

// SumRows appends a column holding the total of each row. Rows not summed
// get nil.
func (t *Table) SumRows(opts SumOptions) {
	label := opts.Label
	if label == "" {
		label = "Total"
	}

	rows := opts.Rows
	if len(rows) == 0 {
		rows = make([]int, len(t.Rows))
		for i := range rows {
			rows[i] = i
		}
	}

	totals := make([]any, len(t.Rows))
	for _, r := range rows {
		if r < 0 || r >= len(t.Rows) {
			continue
		}
		totals[r] = sum(t.Rows[r], opts.Average)
	}

	t.AddColumn(label, totals, "")
}

func sum(cells []any, average bool) float64 {
	total := decimal.Zero
	count := 0
	for _, v := range cells {
		if d, ok := ParseNumber(v); ok {
			total = total.Add(d)
			count++
		}
	}
	if average && count > 0 {
		total = total.Div(decimal.NewFromInt(int64(count)))
	}
	return total.InexactFloat64()
}

// Pivot swaps rows and columns. The first column is treated as row headers:
// its values become the new field names (after the original first field
// name), and the remaining field names become the new first column.
func (t *Table) Pivot() {
	if len(t.Fields) == 0 {
		return
	}

	fields := make([]string, 0, len(t.Rows)+1)
	fields = append(fields, t.Fields[0])
	for _, row := range t.Rows {
		fields = append(fields, String(row[0]))
	}

	rows := make([]Row, 0, len(t.Fields)-1)
	for c := 1; c < len(t.Fields); c++ {
		row := make(Row, 0, len(t.Rows)+1)
		row = append(row, t.Fields[c])
		for _, src := range t.Rows {
			row = append(row, src[c])
		}
		rows = append(rows, row)
	}

	t.Fields = fields
	t.Rows = rows
}

// RemoveDuplicates drops rows whose referenced columns all equal (by String
// form) those of an earlier row. With no refs every column is compared.
// It returns the number of rows removed.
func (t *Table) RemoveDuplicates(refs ...string) int {
	cols := t.columns(refs)
	if len(cols) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(t.Rows))
	kept := t.Rows[:0]
	removed := 0
	for _, row := range t.Rows {
		var b strings.Builder
		for _, c := range cols {
			b.WriteString(typedKey(row[c]))
			b.WriteByte(0x1f)
		}
		key := b.String()
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	t.Rows = kept
	return removed
}

// Replace rewrites the referenced columns (all columns when refs is empty)
// by replacing every case-insensitive match of pattern with repl. Matched
// cells become strings; nil is treated as "". repl may use $1-style
// submatch references.
func (t *Table) Replace(pattern, repl string, refs ...string) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("replace pattern: %w", err)
	}

	for _, col := range t.columns(refs) {
		for _, row := range t.Rows {
			row[col] = re.ReplaceAllString(String(row[col]), repl)
		}
	}
	return nil
}

// Search returns the indexes of rows where any referenced column (all
// columns when refs is empty) contains query, ignoring case.
func (t *Table) Search(query string, refs ...string) []int {
	cols := t.columns(refs)

	needle := strings.ToLower(query)
	var hits []int
	for r, row := range t.Rows {
		for _, c := range cols {
			if row[c] == nil {
				continue
			}
			if strings.Contains(strings.ToLower(String(row[c])), needle) {
				hits = append(hits, r)
				break
			}
		}
	}
	return hits
}

// columns resolves refs to column indexes, dropping the unresolvable ones.
// No refs means every column.
func (t *Table) columns(refs []string) []int {
	var cols []int
	if len(refs) == 0 {
		for i := range t.Fields {
			cols = append(cols, i)
		}
		return cols
	}
	for _, ref := range refs {
		if i, ok := t.FieldIndex(ref); ok {
			cols = append(cols, i)
		}
	}
	return cols
}
