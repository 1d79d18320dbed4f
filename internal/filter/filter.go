// Package filter evaluates WHERE style row filters against a table.
//
// A filter is a boolean combination of comparisons:
//
//	name='Ann%' AND (age='3_' OR status!='closed')
//	0='x'                        column by position
//	amount='$gt(100)'            predicate call
//	OR*='%smith%'                any column matches
//	AND*!='n/a'                  no column is n/a
//
// Column references are exact field names or, failing that, zero-based
// positions. Values are always single quoted and are matched as
// case-insensitive wildcards ('%' any run, '_' one character). AND binds
// tighter than OR; parentheses group. Keywords are case-insensitive.
//
// A comparison against a column that does not exist is false for both '='
// and '!='. A nil cell never matches a wildcard, so '!=' is true for it.
package filter

import (
	"strings"

	"github.com/JonMunkholm/datamaster/internal/table"
)

// Expr is a compiled filter bound to a table's field list.
// It is safe for concurrent use if its predicates are.
type Expr struct {
	query string
	root  node
}

// Result is the outcome of filtering a table. Rows are copies of the
// matching rows in source order; Indices are their positions in the source.
type Result struct {
	Rows    []table.Row
	Indices []int
}

// Compile parses query against fields. Errors wrap ErrSyntax.
// An empty or blank query matches every row.
func Compile(query string, fields []string, preds Predicates) (*Expr, error) {
	if strings.TrimSpace(query) == "" {
		return &Expr{query: query, root: matchAll{}}, nil
	}

	root, err := parse(expandFieldMacros(query, fields), fields, preds)
	if err != nil {
		return nil, err
	}
	return &Expr{query: query, root: root}, nil
}

// Match reports whether row satisfies the filter.
func (e *Expr) Match(row table.Row) bool {
	return e.root.eval(row)
}

// Filter returns the rows of t that satisfy the filter.
func (e *Expr) Filter(t *table.Table) Result {
	res := Result{Rows: []table.Row{}, Indices: []int{}}
	for i, row := range t.Rows {
		if e.root.eval(row) {
			res.Rows = append(res.Rows, append(table.Row(nil), row...))
			res.Indices = append(res.Indices, i)
		}
	}
	return res
}

// String returns the source query.
func (e *Expr) String() string {
	return e.query
}

// Evaluate filters t by query. A query that does not compile matches no
// rows; use Compile to see the error.
func Evaluate(query string, t *table.Table, preds Predicates) Result {
	expr, err := Compile(query, t.Fields, preds)
	if err != nil {
		return Result{Rows: []table.Row{}, Indices: []int{}}
	}
	return expr.Filter(t)
}

// ============================================================================
// Expression Tree
// ============================================================================

type node interface {
	eval(row table.Row) bool
}

type matchAll struct{}

func (matchAll) eval(table.Row) bool { return true }

type andNode []node

func (n andNode) eval(row table.Row) bool {
	for _, c := range n {
		if !c.eval(row) {
			return false
		}
	}
	return true
}

type orNode []node

func (n orNode) eval(row table.Row) bool {
	for _, c := range n {
		if c.eval(row) {
			return true
		}
	}
	return false
}

type matcher interface {
	Match(cell any) bool
}

type atom struct {
	ref    string
	col    int
	negate bool
	m      matcher
}

func (a *atom) eval(row table.Row) bool {
	if a.col < 0 || a.col >= len(row) {
		return false
	}
	ok := a.m.Match(row[a.col])
	if a.negate {
		return !ok
	}
	return ok
}

type predicateMatcher struct {
	name string
	pred Predicate
	args []any
}

func (m *predicateMatcher) Match(cell any) bool {
	return m.pred.Match(cell, m.args)
}
