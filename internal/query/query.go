// Package query runs a small SQL-like statement language over a table.
//
//	SELECT <cols|*> [WHERE <filter>] [ORDER BY <ref> [ASC|DESC], ...]
//	UPDATE SET <ref>=<value>[, ...] [WHERE <filter>]
//	DELETE WHERE <filter>
//	INSERT ...
//
// Verbs and clause keywords are case-insensitive. WHERE clauses use the
// filter package syntax. SELECT never modifies its input; UPDATE and DELETE
// change the table in place.
package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/datamaster/internal/filter"
	"github.com/JonMunkholm/datamaster/internal/logging"
	"github.com/JonMunkholm/datamaster/internal/table"
)

var (
	// ErrUnsupported is returned for statements that are not SELECT,
	// UPDATE, DELETE or INSERT, or that are malformed.
	ErrUnsupported = errors.New("unsupported statement")

	// ErrWhereRequired is returned for a DELETE without a WHERE clause.
	ErrWhereRequired = errors.New("DELETE requires a WHERE clause")

	// ErrInvalidWhere wraps a filter.ErrSyntax from the WHERE clause.
	ErrInvalidWhere = errors.New("invalid WHERE clause")
)

var (
	selectStmt = regexp.MustCompile(`(?is)^SELECT\s+(.+?)(?:\s+WHERE\s+(.+?))?(?:\s+ORDER\s+BY\s+(.+?))?$`)
	updateStmt = regexp.MustCompile(`(?is)^UPDATE\s+SET\s+(.+?)(?:\s+WHERE\s+(.+?))?$`)
	deleteStmt = regexp.MustCompile(`(?is)^DELETE\s+WHERE\s+(.+?)$`)
)

// InsertFunc handles INSERT statements. It returns the number of rows added.
type InsertFunc func(ctx context.Context, statement string, t *table.Table) (int, error)

// Executor runs statements. The zero value is ready to use with the
// built-in predicates; set Predicates to a non-nil map to replace them.
type Executor struct {
	Predicates filter.Predicates

	// Insert handles INSERT. When nil, INSERT is accepted and does nothing.
	Insert InsertFunc
}

// Result describes what a statement did.
//
// For SELECT, Table is a new table holding the selected rows and Indices
// are their positions in the source, in source order. For UPDATE and
// DELETE, Table is the mutated source and Indices are the affected rows
// (positions before the delete for DELETE).
type Result struct {
	Verb     string
	Table    *table.Table
	Indices  []int
	Affected int
}

// Execute runs statement against t.
func (e *Executor) Execute(ctx context.Context, statement string, t *table.Table) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stmt := strings.TrimSpace(statement)
	verb := strings.ToUpper(firstWord(stmt))
	start := time.Now()

	var (
		res *Result
		err error
	)
	switch verb {
	case "SELECT":
		res, err = e.selectRows(stmt, t)
	case "UPDATE":
		res, err = e.update(stmt, t)
	case "DELETE":
		res, err = e.delete(stmt, t)
	case "INSERT":
		res, err = e.insert(ctx, stmt, t)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, truncate(stmt, 40))
	}
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("statement executed",
		"verb", res.Verb,
		"affected", res.Affected,
		"rows", res.Table.Len(),
		"duration", time.Since(start),
	)
	return res, nil
}

func (e *Executor) predicates() filter.Predicates {
	if e.Predicates == nil {
		return filter.Builtins()
	}
	return e.Predicates
}

// where returns the indices of rows matching clause, or every index when
// clause is empty.
func (e *Executor) where(clause string, t *table.Table) ([]int, error) {
	if strings.TrimSpace(clause) == "" {
		all := make([]int, t.Len())
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	expr, err := filter.Compile(clause, t.Fields, e.predicates())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWhere, err)
	}

	indices := []int{}
	for i, row := range t.Rows {
		if expr.Match(row) {
			indices = append(indices, i)
		}
	}
	return indices, nil
}

func (e *Executor) selectRows(stmt string, t *table.Table) (*Result, error) {
	m := selectStmt.FindStringSubmatch(stmt)
	if m == nil {
		return nil, fmt.Errorf("%w: SELECT needs a column list", ErrUnsupported)
	}
	cols, whereClause, orderClause := strings.TrimSpace(m[1]), m[2], m[3]

	indices, err := e.where(whereClause, t)
	if err != nil {
		return nil, err
	}

	rows := make([]table.Row, len(indices))
	for i, idx := range indices {
		rows[i] = t.Rows[idx]
	}
	out := table.New(append([]string(nil), t.Fields...), rows).Clone()

	if keys := parseOrder(orderClause); len(keys) > 0 {
		out.Sort(keys...)
	}
	if cols != "*" {
		out.Reorder(splitList(cols))
	}

	return &Result{Verb: "SELECT", Table: out, Indices: indices, Affected: len(indices)}, nil
}

func (e *Executor) update(stmt string, t *table.Table) (*Result, error) {
	m := updateStmt.FindStringSubmatch(stmt)
	if m == nil {
		return nil, fmt.Errorf("%w: UPDATE needs a SET clause", ErrUnsupported)
	}

	type assignment struct {
		col   int
		value string
	}
	var sets []assignment
	for _, item := range splitOutsideQuotes(m[1], ',') {
		ref, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		col, found := t.FieldIndex(strings.TrimSpace(ref))
		if !found {
			continue
		}
		sets = append(sets, assignment{col: col, value: unquote(strings.TrimSpace(value))})
	}

	indices, err := e.where(m[2], t)
	if err != nil {
		return nil, err
	}

	for _, idx := range indices {
		for _, s := range sets {
			t.Rows[idx][s.col] = s.value
		}
	}

	return &Result{Verb: "UPDATE", Table: t, Indices: indices, Affected: len(indices)}, nil
}

func (e *Executor) delete(stmt string, t *table.Table) (*Result, error) {
	m := deleteStmt.FindStringSubmatch(stmt)
	if m == nil {
		return nil, ErrWhereRequired
	}

	indices, err := e.where(m[1], t)
	if err != nil {
		return nil, err
	}

	for i := len(indices) - 1; i >= 0; i-- {
		t.RemoveRow(indices[i])
	}

	return &Result{Verb: "DELETE", Table: t, Indices: indices, Affected: len(indices)}, nil
}

func (e *Executor) insert(ctx context.Context, stmt string, t *table.Table) (*Result, error) {
	res := &Result{Verb: "INSERT", Table: t, Indices: []int{}}
	if e.Insert == nil {
		return res, nil
	}

	n, err := e.Insert(ctx, stmt, t)
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	res.Affected = n
	return res, nil
}

// ============================================================================
// Clause Helpers
// ============================================================================

// parseOrder parses "a DESC, b, c asc" into sort keys.
func parseOrder(clause string) []table.SortKey {
	var keys []table.SortKey
	for _, item := range splitList(clause) {
		key := table.SortKey{Ref: item}
		if ref, dir, ok := cutLastWord(item); ok {
			switch strings.ToUpper(dir) {
			case "DESC":
				key = table.SortKey{Ref: ref, Desc: true}
			case "ASC":
				key = table.SortKey{Ref: ref}
			}
		}
		keys = append(keys, key)
	}
	return keys
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitOutsideQuotes splits s on sep, ignoring separators inside single or
// double quotes. Parts are trimmed; empty parts are dropped.
func splitOutsideQuotes(s string, sep byte) []string {
	var (
		out   []string
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == sep:
			if part := strings.TrimSpace(s[start:i]); part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}

// unquote strips one pair of matching surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func cutLastWord(s string) (string, string, bool) {
	i := strings.LastIndexAny(s, " \t\r\n")
	if i < 0 {
		return s, "", false
	}
	return strings.TrimSpace(s[:i]), s[i+1:], true
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
