package snapshot

import (
	"strings"
	"unicode"
)

// TextKind says where a text snapshot's accepted state lives.
type TextKind uint8

const (
	// KindFile snapshots live in a sibling file under the snapshot path.
	KindFile TextKind = iota
	// KindInline snapshots live as a literal argument at the call site.
	KindInline
)

// Contents is the payload of a snapshot, either text or binary.
type Contents interface {
	isContents()
}

// TextContents is snapshot text plus the encoding it came from. Inline text
// is normalized on construction so that comparison ignores the indentation
// the literal carried in source.
type TextContents struct {
	kind TextKind
	text string
}

func (TextContents) isContents() {}

// NewTextContents normalizes text per the kind's rules.
func NewTextContents(kind TextKind, text string) TextContents {
	if kind == KindInline {
		text = normalizeInline(text)
	}
	return TextContents{kind: kind, text: text}
}

func (t TextContents) Kind() TextKind { return t.kind }

// String returns the normalized snapshot text.
func (t TextContents) String() string { return t.text }

// Matches is the comparison used by default assertions: trailing whitespace
// on each line and trailing newlines are not significant.
func (t TextContents) Matches(other TextContents) bool {
	return normalizeForMatch(t.text) == normalizeForMatch(other.text)
}

// MatchesFully compares the exact normalized text.
func (t TextContents) MatchesFully(other TextContents) bool {
	return t.text == other.text
}

// BinaryContents is a raw payload stored next to the snapshot file, with the
// file extension identifying its format.
type BinaryContents struct {
	Extension string
	Data      []byte
}

func (BinaryContents) isContents() {}

// Matches compares extension and bytes.
func (b BinaryContents) Matches(other BinaryContents) bool {
	return b.Extension == other.Extension && string(b.Data) == string(other.Data)
}

func normalizeForMatch(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// minIndentation finds the smallest leading-whitespace width over non-empty
// lines. Spaces and tabs both count; the rewriter indents with whatever the
// call site uses.
func minIndentation(text string) int {
	min := -1
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if min < 0 || indent < min {
			min = indent
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

// CanonicalInlineLayout reports whether an inline literal already carries
// the layout the rewriter emits: a multi-line value begins with a newline
// and, after any trailing indentation, ends with one. Single-line literals
// always qualify.
func CanonicalInlineLayout(text string) bool {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.Contains(text, "\n") {
		return true
	}
	trimmed := strings.TrimRight(text, " \t")
	return strings.HasPrefix(text, "\n") && strings.HasSuffix(trimmed, "\n")
}

// normalizeInline strips the layout an inline literal carries in source:
// leading blank lines, per-line trailing whitespace, trailing blank lines,
// and the common indentation block. Single-line values are just trimmed.
func normalizeInline(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.Contains(text, "\n") {
		return strings.TrimSpace(text)
	}
	indent := minIndentation(text)
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		if len(line) >= indent {
			line = line[indent:]
		}
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.Join(lines, "\n")
}
