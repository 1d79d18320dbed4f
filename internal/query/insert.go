package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/datamaster/internal/table"
)

var insertStmt = regexp.MustCompile(`(?is)^INSERT\s+(?:INTO\s+\S+\s+)?(?:\(([^)]*)\)\s*)?VALUES\s*(.+)$`)

// InsertValues is an InsertFunc for
//
//	INSERT [INTO name] [(col, ...)] VALUES (v, ...)[, (v, ...)]
//
// Values may be quoted with ' or "; a bare NULL is nil. Without a column
// list, values fill columns left to right. Rows are appended. Nothing is
// added unless the whole statement parses.
func InsertValues(_ context.Context, statement string, t *table.Table) (int, error) {
	m := insertStmt.FindStringSubmatch(strings.TrimSpace(statement))
	if m == nil {
		return 0, fmt.Errorf("%w: INSERT needs VALUES (...)", ErrUnsupported)
	}

	cols, err := insertColumns(m[1], t)
	if err != nil {
		return 0, err
	}

	groups, err := splitGroups(m[2])
	if err != nil {
		return 0, err
	}

	rows := make([][]any, len(groups))
	for i, g := range groups {
		values := splitOutsideQuotes(g, ',')
		row := make([]any, t.Width())
		for j, v := range values {
			if cols != nil {
				if j >= len(cols) {
					return 0, fmt.Errorf("%w: row %d has %d values for %d columns", ErrUnsupported, i+1, len(values), len(cols))
				}
				row[cols[j]] = insertValue(v)
			} else if j < len(row) {
				row[j] = insertValue(v)
			}
		}
		rows[i] = row
	}

	for _, row := range rows {
		t.AddRow(row, -1)
	}
	return len(rows), nil
}

func insertColumns(list string, t *table.Table) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	var cols []int
	for _, ref := range splitList(list) {
		col, ok := t.FieldIndex(ref)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrUnsupported, ref)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func insertValue(v string) any {
	if strings.EqualFold(v, "NULL") {
		return nil
	}
	return unquote(v)
}

// splitGroups returns the contents of each top-level parenthesized group in
// "(a, b), (c, d)". Parentheses inside quotes are ignored.
func splitGroups(s string) ([]string, error) {
	var (
		groups []string
		quote  byte
		depth  int
		start  int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			if depth == 0 {
				return nil, fmt.Errorf("%w: value outside parentheses", ErrUnsupported)
			}
			quote = c
		case c == '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced parentheses in VALUES", ErrUnsupported)
			}
			if depth == 0 {
				groups = append(groups, s[start:i])
			}
		case depth == 0 && c != ',' && !isSpace(c):
			return nil, fmt.Errorf("%w: unexpected %q in VALUES", ErrUnsupported, c)
		}
	}
	if depth != 0 || quote != 0 {
		return nil, fmt.Errorf("%w: unterminated VALUES", ErrUnsupported)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: INSERT needs VALUES (...)", ErrUnsupported)
	}
	return groups, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
