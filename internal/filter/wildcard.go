package filter

import (
	"regexp"
	"strings"

	"github.com/JonMunkholm/datamaster/internal/table"
)

// Pattern is a compiled SQL LIKE style wildcard. '%' matches any run of
// characters (including none), '_' matches exactly one character, and every
// other character matches itself, ignoring case. A pattern must match the
// whole value.
type Pattern struct {
	src string
	re  *regexp.Regexp
}

// CompilePattern compiles a wildcard pattern.
func CompilePattern(pattern string) *Pattern {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)

	return &Pattern{src: pattern, re: regexp.MustCompile(b.String())}
}

// Match reports whether the cell matches. nil never matches.
func (p *Pattern) Match(cell any) bool {
	if cell == nil {
		return false
	}
	return p.re.MatchString(table.String(cell))
}

// String returns the source pattern.
func (p *Pattern) String() string {
	return p.src
}

// Match reports whether cell matches the wildcard pattern.
//
//	Match("Anna", "A%")   // true
//	Match("Anna", "A_")   // false
//	Match("Anna", "_nna") // true
//	Match("anna", "ANNA") // true
func Match(cell any, pattern string) bool {
	return CompilePattern(pattern).Match(cell)
}
