// Package selector implements the path-query language used to address
// locations inside a Content tree, and the redaction rules applied at the
// matched locations.
//
// Query syntax:
//
//	.field          field or string-keyed access
//	["some key"]    quoted key access (backslash escapes)
//	[0]             index access
//	[]              full range over a sequence
//	[1:] [:2] [1:3] open and closed slices (negative bounds count from the end)
//	.*              wildcard over one level
//	.**             deep wildcard over any number of levels (at most once)
//
// Multiple selectors may be joined with commas; a location matching any of
// them is redacted.
package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports a malformed selector query. Column is 1-based.
type SyntaxError struct {
	Query   string
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("selector syntax error in %q at column %d: %s", e.Query, e.Column, e.Message)
}

type segmentKind uint8

const (
	segKey segmentKind = iota
	segIndex
	segRange
	segWildcard
	segDeepWildcard
)

type segment struct {
	kind  segmentKind
	key   string
	index uint64
	// slice bounds; nil means open
	from *int64
	to   *int64
}

// Selector is a compiled path query. Compile once with Parse, apply many
// times; a Selector is immutable and safe for concurrent use.
type Selector struct {
	query string
	alts  [][]segment
}

// MustParse is Parse for statically known queries.
func MustParse(query string) *Selector {
	sel, err := Parse(query)
	if err != nil {
		panic(err)
	}
	return sel
}

// Parse compiles a textual query. Configuration-time errors surface here as
// *SyntaxError; applying a selector never fails.
func Parse(query string) (*Selector, error) {
	p := &parser{query: query}
	alts, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Selector{query: query, alts: alts}, nil
}

// String returns the original query text.
func (s *Selector) String() string { return s.query }

type parser struct {
	query string
	pos   int
}

func (p *parser) errorf(col int, format string, args ...any) error {
	return &SyntaxError{Query: p.query, Column: col + 1, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() ([][]segment, error) {
	var alts [][]segment
	for {
		segs, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		alts = append(alts, segs)
		p.skipSpaces()
		if p.pos >= len(p.query) {
			return alts, nil
		}
		if p.query[p.pos] != ',' {
			return nil, p.errorf(p.pos, "unexpected character %q", p.query[p.pos])
		}
		p.pos++
	}
}

func (p *parser) parseSelector() ([]segment, error) {
	p.skipSpaces()
	start := p.pos
	segs := []segment{}
	haveDeep := false
	for p.pos < len(p.query) {
		switch c := p.query[p.pos]; {
		case c == '.':
			p.pos++
			seg, err := p.parseDotSegment(start)
			if err != nil {
				return nil, err
			}
			if seg == nil {
				continue // bare identity dot
			}
			if seg.kind == segDeepWildcard {
				if haveDeep {
					return nil, p.errorf(p.pos-2, "deep wildcard used twice")
				}
				haveDeep = true
			}
			segs = append(segs, *seg)
		case c == '[':
			p.pos++
			seg, err := p.parseSubscript()
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
		case c == ',' || c == ' ':
			if len(segs) == 0 && p.pos == start {
				return nil, p.errorf(p.pos, "empty selector")
			}
			return segs, nil
		default:
			return nil, p.errorf(p.pos, "unexpected character %q", c)
		}
	}
	if len(segs) == 0 && p.pos == start {
		return nil, p.errorf(p.pos, "empty selector")
	}
	return segs, nil
}

func (p *parser) parseDotSegment(selStart int) (*segment, error) {
	if p.pos < len(p.query) && p.query[p.pos] == '*' {
		p.pos++
		if p.pos < len(p.query) && p.query[p.pos] == '*' {
			p.pos++
			return &segment{kind: segDeepWildcard}, nil
		}
		return &segment{kind: segWildcard}, nil
	}
	begin := p.pos
	for p.pos < len(p.query) && isKeyChar(p.query[p.pos]) {
		p.pos++
	}
	if p.pos == begin {
		// a single leading "." is the identity selector; an interior empty
		// segment is a syntax error
		if begin == selStart+1 && (p.pos >= len(p.query) || p.query[p.pos] == ',' || p.query[p.pos] == ' ') {
			return nil, nil
		}
		return nil, p.errorf(begin, "empty segment")
	}
	return &segment{kind: segKey, key: p.query[begin:p.pos]}, nil
}

func (p *parser) parseSubscript() (segment, error) {
	open := p.pos - 1
	end := strings.IndexByte(p.query[p.pos:], ']')
	if p.pos < len(p.query) && p.query[p.pos] == '"' {
		return p.parseQuotedKey(open)
	}
	if end < 0 {
		return segment{}, p.errorf(open, "unterminated subscript")
	}
	body := p.query[p.pos : p.pos+end]
	bodyStart := p.pos
	p.pos += end + 1

	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return segment{kind: segRange}, nil
	}
	if colon := strings.IndexByte(trimmed, ':'); colon >= 0 {
		seg := segment{kind: segRange}
		if fromStr := strings.TrimSpace(trimmed[:colon]); fromStr != "" {
			from, err := strconv.ParseInt(fromStr, 10, 64)
			if err != nil {
				return segment{}, p.errorf(bodyStart, "non-numeric range bound %q", fromStr)
			}
			seg.from = &from
		}
		if toStr := strings.TrimSpace(trimmed[colon+1:]); toStr != "" {
			to, err := strconv.ParseInt(toStr, 10, 64)
			if err != nil {
				return segment{}, p.errorf(bodyStart, "non-numeric range bound %q", toStr)
			}
			seg.to = &to
		}
		return seg, nil
	}
	idx, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return segment{}, p.errorf(bodyStart, "invalid subscript %q", trimmed)
	}
	return segment{kind: segIndex, index: idx}, nil
}

func (p *parser) parseQuotedKey(open int) (segment, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.query) {
		switch c := p.query[p.pos]; c {
		case '\\':
			p.pos++
			if p.pos >= len(p.query) {
				return segment{}, p.errorf(open, "unterminated subscript")
			}
			b.WriteByte(p.query[p.pos])
			p.pos++
		case '"':
			p.pos++
			if p.pos >= len(p.query) || p.query[p.pos] != ']' {
				return segment{}, p.errorf(open, "unterminated subscript")
			}
			p.pos++
			return segment{kind: segKey, key: b.String()}, nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return segment{}, p.errorf(open, "unterminated subscript")
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.query) && p.query[p.pos] == ' ' {
		p.pos++
	}
}

func isKeyChar(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
