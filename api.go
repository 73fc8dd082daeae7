package snaptool

import (
	"fmt"

	"snaptool/internal/content"
	"snaptool/internal/format"
	"snaptool/internal/snapshot"
)

// renderValue serializes a value through the structured form, applying the
// active redactions and filters.
func (a *assertion) renderValue(v any, f format.Format) (string, bool) {
	c := a.settings.applyRedactions(content.FromValue(v))
	text, err := format.Serialize(c, f)
	if err != nil {
		a.t.Fatalf("snaptool: cannot serialize value as %s: %v", f, err)
		return "", false
	}
	return a.settings.applyFilters(text), true
}

func (a *assertion) renderString(v any) string {
	var text string
	switch s := v.(type) {
	case string:
		text = s
	case fmt.Stringer:
		text = s.String()
	default:
		text = fmt.Sprint(v)
	}
	return a.settings.applyFilters(text)
}

// AssertSnapshot compares the string form of value against the accepted
// file snapshot named after the running test. Strings and fmt.Stringer
// values snapshot their text directly, everything else goes through
// fmt.Sprint.
func AssertSnapshot(t TestingT, value any) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	a.assertFile("", snapshot.NewTextContents(snapshot.KindFile, a.renderString(value)), "text")
}

// AssertNamedSnapshot is AssertSnapshot with an explicit snapshot name
// instead of one derived from the test name.
func AssertNamedSnapshot(t TestingT, name string, value any) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	a.assertFile(name, snapshot.NewTextContents(snapshot.KindFile, a.renderString(value)), "text")
}

// AssertDebugSnapshot snapshots the Go-syntax representation of value, as
// produced by the %#v verb.
func AssertDebugSnapshot(t TestingT, value any) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text := a.settings.applyFilters(fmt.Sprintf("%#v", value))
	a.assertFile("", snapshot.NewTextContents(snapshot.KindFile, text), "text")
}

// AssertJSONSnapshot snapshots value rendered as pretty-printed JSON.
func AssertJSONSnapshot(t TestingT, value any) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text, ok := a.renderValue(value, format.JSON)
	if !ok {
		return
	}
	a.assertFile("", snapshot.NewTextContents(snapshot.KindFile, text), "json")
}

// AssertCompactJSONSnapshot snapshots value rendered as condensed JSON,
// falling back to the pretty layout for long payloads.
func AssertCompactJSONSnapshot(t TestingT, value any) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text, ok := a.renderValue(value, format.CompactJSON)
	if !ok {
		return
	}
	a.assertFile("", snapshot.NewTextContents(snapshot.KindFile, text), "json")
}

// AssertYAMLSnapshot snapshots value rendered as YAML.
func AssertYAMLSnapshot(t TestingT, value any) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text, ok := a.renderValue(value, format.YAML)
	if !ok {
		return
	}
	a.assertFile("", snapshot.NewTextContents(snapshot.KindFile, text), "yaml")
}

// AssertTOMLSnapshot snapshots value rendered as TOML. Values TOML cannot
// express, like null, fail the assertion.
func AssertTOMLSnapshot(t TestingT, value any) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text, ok := a.renderValue(value, format.TOML)
	if !ok {
		return
	}
	a.assertFile("", snapshot.NewTextContents(snapshot.KindFile, text), "toml")
}

// AssertCSVSnapshot snapshots value rendered as CSV. The value must be a
// sequence of flat records or a single flat record.
func AssertCSVSnapshot(t TestingT, value any) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text, ok := a.renderValue(value, format.CSV)
	if !ok {
		return
	}
	a.assertFile("", snapshot.NewTextContents(snapshot.KindFile, text), "csv")
}

// AssertBinarySnapshot snapshots raw bytes. The payload is stored next to
// the snapshot header file with the given extension.
func AssertBinarySnapshot(t TestingT, extension string, data []byte) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	a.assertFile("", snapshot.BinaryContents{Extension: extension, Data: data}, "binary")
}

// AssertNamedBinarySnapshot is AssertBinarySnapshot with an explicit name.
func AssertNamedBinarySnapshot(t TestingT, name, extension string, data []byte) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	a.assertFile(name, snapshot.BinaryContents{Extension: extension, Data: data}, "binary")
}

// AssertInlineSnapshot compares the string form of value against the
// expected literal written at the call site. Pass an empty string to have
// the tooling fill the literal in.
func AssertInlineSnapshot(t TestingT, value any, expected string) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	a.assertInline(expected, a.renderString(value))
}

// AssertJSONInlineSnapshot is AssertInlineSnapshot over the pretty JSON
// rendering of value.
func AssertJSONInlineSnapshot(t TestingT, value any, expected string) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text, ok := a.renderValue(value, format.JSON)
	if !ok {
		return
	}
	a.assertInline(expected, text)
}

// AssertCompactJSONInlineSnapshot is AssertInlineSnapshot over the
// condensed JSON rendering of value.
func AssertCompactJSONInlineSnapshot(t TestingT, value any, expected string) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text, ok := a.renderValue(value, format.CompactJSON)
	if !ok {
		return
	}
	a.assertInline(expected, text)
}

// AssertYAMLInlineSnapshot is AssertInlineSnapshot over the YAML rendering
// of value.
func AssertYAMLInlineSnapshot(t TestingT, value any, expected string) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	text, ok := a.renderValue(value, format.YAML)
	if !ok {
		return
	}
	a.assertInline(expected, text)
}

// AssertDebugInlineSnapshot is AssertInlineSnapshot over the Go-syntax
// representation of value.
func AssertDebugInlineSnapshot(t TestingT, value any, expected string) {
	t.Helper()
	a, ok := newAssertion(t, 1)
	if !ok {
		return
	}
	a.assertInline(expected, a.settings.applyFilters(fmt.Sprintf("%#v", value)))
}
