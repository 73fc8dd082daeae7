// Package format renders Content trees as YAML, JSON, TOML and CSV text, and
// parses YAML and JSON snapshot bodies back into Content for structural
// comparison. Rendering is deterministic: the same tree always produces the
// same bytes.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"snaptool/internal/content"
)

// Format selects the serialization applied to a structured snapshot value.
type Format uint8

const (
	YAML Format = iota
	JSON
	CompactJSON
	TOML
	CSV
)

func (f Format) String() string {
	switch f {
	case YAML:
		return "yaml"
	case JSON:
		return "json"
	case CompactJSON:
		return "json-compact"
	case TOML:
		return "toml"
	case CSV:
		return "csv"
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// KeyTypeError reports a mapping key that cannot be coerced to a string in a
// string-keyed format.
type KeyTypeError struct {
	Format Format
	Key    content.Content
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("%s: map key of kind %v is not representable as a string", e.Format, e.Key.Kind())
}

// UnsupportedValueError reports a value the target format has no encoding
// for, such as null in TOML.
type UnsupportedValueError struct {
	Format Format
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Format, e.Reason)
}

// ParseError reports unparseable snapshot body text.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s snapshot body: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Serialize renders v in the given format. Output never has a trailing
// newline; the snapshot layer owns newline normalization.
func Serialize(v content.Content, f Format) (string, error) {
	switch f {
	case YAML:
		return renderYAML(v)
	case JSON:
		return renderJSON(v, jsonPretty)
	case CompactJSON:
		return renderCompactJSON(v)
	case TOML:
		return renderTOML(v)
	case CSV:
		return renderCSV(v)
	}
	return "", fmt.Errorf("unknown serialization format %d", uint8(f))
}

// Parse reads serialized snapshot body text back into a Content tree.
// Only YAML and JSON bodies round-trip; other formats are render-only.
func Parse(text string, f Format) (content.Content, bool, error) {
	switch f {
	case YAML:
		c, err := parseYAML(text)
		return c, true, err
	case JSON, CompactJSON:
		c, err := parseJSON(text)
		return c, true, err
	}
	return content.Content{}, false, nil
}

// formatFloat prints a float the way snapshot bodies expect: plain decimal
// notation with a ".0" suffix keeping whole floats distinguishable from
// integers.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func stringKeyOf(key content.Content, f Format) (string, error) {
	s, ok := key.StringKey()
	if !ok {
		return "", &KeyTypeError{Format: f, Key: key}
	}
	return s, nil
}
