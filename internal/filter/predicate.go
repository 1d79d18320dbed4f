package filter

import (
	"regexp"
	"strings"

	"github.com/JonMunkholm/datamaster/internal/table"
)

// Predicate is a named test callable from a query as $name(args...).
// cell is the value of the referenced column; args are the parsed literals.
type Predicate interface {
	Match(cell any, args []any) bool
}

// Preparer is implemented by predicates that do per-comparison work up
// front. Compile calls Prepare once with the literal's arguments and uses
// the returned Predicate for every row.
type Preparer interface {
	Prepare(args []any) Predicate
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(cell any, args []any) bool

// Match calls f.
func (f PredicateFunc) Match(cell any, args []any) bool {
	return f(cell, args)
}

// Predicates maps names to predicates. A missing or nil entry makes the
// query fall back to wildcard comparison against the literal text.
type Predicates map[string]Predicate

// With returns a copy of p with fn registered under name.
func (p Predicates) With(name string, fn PredicateFunc) Predicates {
	out := make(Predicates, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[name] = fn
	return out
}

func (p Predicates) lookup(name string) (Predicate, bool) {
	pred, ok := p[name]
	if !ok || pred == nil {
		return nil, false
	}
	if fn, isFunc := pred.(PredicateFunc); isFunc && fn == nil {
		return nil, false
	}
	return pred, true
}

// Builtins returns a fresh registry of the standard predicates:
//
//	$gt(n) $gte(n) $lt(n) $lte(n)   ordered comparison
//	$between(lo, hi)                inclusive range
//	$in(a, b, ...)                  case-insensitive membership
//	$contains(s) $startsWith(s) $endsWith(s)
//	$empty()                        nil or blank
//	$regex(pattern)                 RE2 match
//
// Ordered comparisons are numeric when both sides parse as numbers and fall
// back to string ordering otherwise. nil cells never match except $empty.
func Builtins() Predicates {
	return Predicates{
		"gt":         PredicateFunc(compareWith(func(c int) bool { return c > 0 })),
		"gte":        PredicateFunc(compareWith(func(c int) bool { return c >= 0 })),
		"lt":         PredicateFunc(compareWith(func(c int) bool { return c < 0 })),
		"lte":        PredicateFunc(compareWith(func(c int) bool { return c <= 0 })),
		"between":    PredicateFunc(between),
		"in":         PredicateFunc(in),
		"contains":   PredicateFunc(textTest(strings.Contains)),
		"startsWith": PredicateFunc(textTest(strings.HasPrefix)),
		"endsWith":   PredicateFunc(textTest(strings.HasSuffix)),
		"empty":      PredicateFunc(empty),
		"regex":      regexPredicate{},
	}
}

// compareCells orders cell against arg. ok is false when cell is nil.
func compareCells(cell, arg any) (int, bool) {
	if cell == nil || arg == nil {
		return 0, false
	}
	a, aok := table.ParseNumber(cell)
	b, bok := table.ParseNumber(arg)
	if aok && bok {
		return a.Cmp(b), true
	}
	return strings.Compare(table.String(cell), table.String(arg)), true
}

func compareWith(accept func(int) bool) func(any, []any) bool {
	return func(cell any, args []any) bool {
		if len(args) < 1 {
			return false
		}
		c, ok := compareCells(cell, args[0])
		return ok && accept(c)
	}
}

func between(cell any, args []any) bool {
	if len(args) < 2 {
		return false
	}
	lo, ok := compareCells(cell, args[0])
	if !ok || lo < 0 {
		return false
	}
	hi, ok := compareCells(cell, args[1])
	return ok && hi <= 0
}

func in(cell any, args []any) bool {
	if cell == nil {
		return false
	}
	s := table.String(cell)
	for _, a := range args {
		if a != nil && strings.EqualFold(s, table.String(a)) {
			return true
		}
	}
	return false
}

func textTest(test func(s, sub string) bool) func(any, []any) bool {
	return func(cell any, args []any) bool {
		if cell == nil || len(args) < 1 {
			return false
		}
		return test(strings.ToLower(table.String(cell)), strings.ToLower(table.String(args[0])))
	}
}

func empty(cell any, _ []any) bool {
	return cell == nil || strings.TrimSpace(table.String(cell)) == ""
}

// regexPredicate matches cells against an RE2 pattern. An invalid pattern
// never matches.
type regexPredicate struct{}

func (regexPredicate) Match(cell any, args []any) bool {
	return regexPredicate{}.Prepare(args).Match(cell, args)
}

func (regexPredicate) Prepare(args []any) Predicate {
	if len(args) < 1 || args[0] == nil {
		return PredicateFunc(func(any, []any) bool { return false })
	}
	re, err := regexp.Compile(table.String(args[0]))
	if err != nil {
		return PredicateFunc(func(any, []any) bool { return false })
	}
	return PredicateFunc(func(cell any, _ []any) bool {
		return cell != nil && re.MatchString(table.String(cell))
	})
}
