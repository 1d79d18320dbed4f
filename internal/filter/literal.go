package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseArgs parses a comma separated list of literal values, the argument
// list of a predicate call such as $between(1, 10).
//
// Recognized values:
//
//	12, -3.5, 1e3     float64
//	"text", 'text'    string (backslash escapes \\ \" \' \n \t)
//	true, false       bool
//	null              nil
//	anything else     string, trimmed (a bare word)
//
// An empty list yields an empty slice. A trailing comma is allowed.
func ParseArgs(s string) ([]any, error) {
	p := &argParser{src: s}
	args := []any{}

	for {
		p.skipSpace()
		if p.done() {
			return args, nil
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		args = append(args, v)

		p.skipSpace()
		if p.done() {
			return args, nil
		}
		if p.src[p.pos] != ',' {
			return nil, fmt.Errorf("argument list: expected ',' at position %d", p.pos)
		}
		p.pos++
	}
}

type argParser struct {
	src string
	pos int
}

func (p *argParser) done() bool {
	return p.pos >= len(p.src)
}

func (p *argParser) skipSpace() {
	for !p.done() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *argParser) value() (any, error) {
	switch c := p.src[p.pos]; c {
	case '"', '\'':
		return p.quoted(c)
	case ',':
		return nil, fmt.Errorf("argument list: missing value at position %d", p.pos)
	}

	start := p.pos
	for !p.done() && p.src[p.pos] != ',' {
		p.pos++
	}
	word := strings.TrimSpace(p.src[start:p.pos])

	switch word {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}
	if looksNumeric(word) {
		if f, err := strconv.ParseFloat(word, 64); err == nil {
			return f, nil
		}
	}
	return word, nil
}

func (p *argParser) quoted(q byte) (any, error) {
	start := p.pos
	p.pos++

	var b strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		switch {
		case c == q:
			p.pos++
			return b.String(), nil
		case c == '\\' && p.pos+1 < len(p.src):
			p.pos++
			switch e := p.src[p.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
		p.pos++
	}
	return nil, fmt.Errorf("argument list: unterminated string at position %d", start)
}

func looksNumeric(word string) bool {
	if word == "" {
		return false
	}
	c := word[0]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
