package filter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/JonMunkholm/datamaster/internal/table"
)

// ErrSyntax is wrapped by every error Compile returns for a malformed query.
var ErrSyntax = errors.New("filter syntax error")

func syntaxErr(pos int, format string, args ...any) error {
	return fmt.Errorf("%w at position %d: %s", ErrSyntax, pos, fmt.Sprintf(format, args...))
}

// fieldMacro matches OR*='v' / AND*!='v', which expand to one comparison per
// field joined by the keyword.
var fieldMacro = regexp.MustCompile(`(OR|AND)\*\s*(=|!=)\s*'([^']+)'`)

func expandFieldMacros(query string, fields []string) string {
	return fieldMacro.ReplaceAllStringFunc(query, func(m string) string {
		sub := fieldMacro.FindStringSubmatch(m)
		keyword, op, value := sub[1], sub[2], sub[3]

		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = f + op + "'" + value + "'"
		}
		return "(" + strings.Join(parts, " "+keyword+" ") + ")"
	})
}

// ============================================================================
// Lexer
// ============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokAtom
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	default:
		return "comparison"
	}
}

type token struct {
	kind tokenKind
	pos  int

	// Set for tokAtom. col is -1 when ref is not a column of the table.
	ref     string
	col     int
	negate  bool
	literal string
}

type lexer struct {
	src    string
	pos    int
	fields []string
	byLen  []int // field indices, longest name first
}

func newLexer(src string, fields []string) *lexer {
	byLen := make([]int, 0, len(fields))
	for i, f := range fields {
		if f != "" {
			byLen = append(byLen, i)
		}
	}
	sort.SliceStable(byLen, func(a, b int) bool {
		return len(fields[byLen[a]]) > len(fields[byLen[b]])
	})
	return &lexer{src: src, fields: fields, byLen: byLen}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if start >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	// A column name followed by an operator is a comparison even when the
	// name looks like a keyword or contains parentheses.
	for _, idx := range l.byLen {
		name := l.fields[idx]
		if !strings.HasPrefix(l.src[start:], name) {
			continue
		}
		if tok, ok, err := l.comparison(start, start+len(name), name, idx); ok || err != nil {
			return tok, err
		}
	}

	switch l.src[start] {
	case '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	}
	if l.keyword("AND") {
		return token{kind: tokAnd, pos: start}, nil
	}
	if l.keyword("OR") {
		return token{kind: tokOr, pos: start}, nil
	}

	end := start
	for end < len(l.src) {
		c := l.src[end]
		if c == '=' || c == '(' || c == ')' || c == '\'' || (c == '!' && end+1 < len(l.src) && l.src[end+1] == '=') {
			break
		}
		end++
	}
	ref := strings.TrimSpace(l.src[start:end])
	if ref == "" {
		return token{}, syntaxErr(start, "missing column before operator")
	}
	tok, ok, err := l.comparison(start, end, ref, -1)
	if err != nil {
		return token{}, err
	}
	if !ok {
		return token{}, syntaxErr(start, "expected comparison after %q", ref)
	}
	if idx, found := table.FieldIndex(l.fields, ref); found {
		tok.col = idx
	}
	return tok, nil
}

// comparison parses `<op> '<literal>'` at refEnd. ok is false when no
// operator follows, leaving the lexer position unchanged.
func (l *lexer) comparison(start, refEnd int, ref string, col int) (token, bool, error) {
	i := refEnd
	for i < len(l.src) && isSpace(l.src[i]) {
		i++
	}

	var negate bool
	switch {
	case strings.HasPrefix(l.src[i:], "!="):
		negate = true
		i += 2
	case strings.HasPrefix(l.src[i:], "="):
		i++
	default:
		return token{}, false, nil
	}

	for i < len(l.src) && isSpace(l.src[i]) {
		i++
	}
	if i >= len(l.src) || l.src[i] != '\'' {
		return token{}, false, syntaxErr(i, "expected quoted value after operator")
	}
	closing := strings.IndexByte(l.src[i+1:], '\'')
	if closing < 0 {
		return token{}, false, syntaxErr(i, "unterminated value")
	}

	literal := l.src[i+1 : i+1+closing]
	l.pos = i + closing + 2

	return token{
		kind:    tokAtom,
		pos:     start,
		ref:     ref,
		col:     col,
		negate:  negate,
		literal: literal,
	}, true, nil
}

// keyword consumes kw (any case) when it stands as a whole word.
func (l *lexer) keyword(kw string) bool {
	end := l.pos + len(kw)
	if end > len(l.src) || !strings.EqualFold(l.src[l.pos:end], kw) {
		return false
	}
	if end < len(l.src) && !isSpace(l.src[end]) && l.src[end] != '(' {
		return false
	}
	l.pos = end
	return true
}

// ============================================================================
// Parser
// ============================================================================

// Grammar, AND binding tighter than OR:
//
//	expr    = and { OR and }
//	and     = primary { AND primary }
//	primary = comparison | "(" expr ")"
type parser struct {
	lex   *lexer
	tok   token
	preds Predicates
}

func parse(query string, fields []string, preds Predicates) (node, error) {
	p := &parser{lex: newLexer(query, fields), preds: preds}
	if err := p.advance(); err != nil {
		return nil, err
	}

	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, syntaxErr(p.tok.pos, "unexpected %s", p.tok.kind)
	}
	return n, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseOr() (node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := orNode{first}
	for p.tok.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, n)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return terms, nil
}

func (p *parser) parseAnd() (node, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	terms := andNode{first}
	for p.tok.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, n)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return terms, nil
}

func (p *parser) parsePrimary() (node, error) {
	switch p.tok.kind {
	case tokAtom:
		a := &atom{
			ref:    p.tok.ref,
			col:    p.tok.col,
			negate: p.tok.negate,
			m:      newMatcher(p.tok.literal, p.preds),
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return a, nil

	case tokLParen:
		open := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokRParen {
			return nil, syntaxErr(open, "empty group")
		}
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, syntaxErr(p.tok.pos, "expected ')' to close group at position %d, found %s", open, p.tok.kind)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil

	default:
		return nil, syntaxErr(p.tok.pos, "expected comparison or '(', found %s", p.tok.kind)
	}
}

// newMatcher builds the test for one comparison literal. $name(args) calls a
// registered predicate; everything else, including unknown predicates and
// unparsable argument lists, is a wildcard pattern over the literal text.
func newMatcher(literal string, preds Predicates) matcher {
	if strings.HasPrefix(literal, "$") {
		if name, args, ok := splitCall(literal[1:]); ok {
			if pred, found := preds.lookup(name); found {
				if prep, ok := pred.(Preparer); ok {
					pred = prep.Prepare(args)
				}
				return &predicateMatcher{name: name, pred: pred, args: args}
			}
		}
	}
	return CompilePattern(literal)
}

// splitCall splits `name(args)` or a bare `name`.
func splitCall(s string) (string, []any, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, []any{}, s != ""
	}
	closing := strings.LastIndexByte(s, ')')
	if closing < open || strings.TrimSpace(s[closing+1:]) != "" {
		return "", nil, false
	}
	args, err := ParseArgs(s[open+1 : closing])
	if err != nil {
		return "", nil, false
	}
	return s[:open], args, true
}
