// Package snaptool implements snapshot testing for Go: assertion helpers
// compare a value's rendered form against an accepted reference stored
// either in a snapshot file or inline at the call site, and record pending
// updates for review when they differ.
package snaptool

import (
	"regexp"
	"sync"

	"snaptool/internal/content"
	"snaptool/internal/format"
	"snaptool/internal/selector"
	"snaptool/internal/snapshot"
)

// Redaction replaces matched values before serialization. Construct with
// StaticRedaction, DynamicRedaction, SortedRedaction or RoundedRedaction.
type Redaction = selector.Redaction

// Path locates a value inside the structured form during dynamic redaction.
type Path = selector.Path

// Content is the structured form a value takes before serialization.
type Content = content.Content

// Comparator decides whether a candidate snapshot matches the accepted one.
type Comparator = snapshot.Comparator

// StructuralJSONComparator matches snapshots by parsing both bodies as JSON
// and comparing the resulting trees, so reformatting an accepted snapshot
// does not fail the assertion.
func StructuralJSONComparator() Comparator {
	return snapshot.StructuralComparator{Format: format.JSON}
}

// StructuralYAMLComparator is StructuralJSONComparator for YAML bodies.
func StructuralYAMLComparator() Comparator {
	return snapshot.StructuralComparator{Format: format.YAML}
}

// StaticRedaction replaces matched values with a fixed placeholder.
func StaticRedaction(replacement any) Redaction { return selector.Static(replacement) }

// DynamicRedaction computes the replacement from the matched value and its
// path.
func DynamicRedaction(fn func(v Content, path Path) Content) Redaction {
	return selector.Dynamic(fn)
}

// SortedRedaction orders the matched collection for stable output.
func SortedRedaction() Redaction { return selector.Sorted() }

// RoundedRedaction rounds matched floats to the given decimal places.
func RoundedRedaction(decimals int) Redaction { return selector.Rounded(decimals) }

// Filter is a regex substitution applied to rendered snapshot text before
// comparison.
type Filter struct {
	Pattern     *regexp.Regexp
	Replacement string
}

type boundRedaction struct {
	sel *selector.Selector
	red Redaction
}

// Settings scope how assertions inside a WithSettings callback behave.
// The zero value is the default behavior.
type Settings struct {
	// SortMaps orders map keys before serialization.
	SortMaps bool
	// SnapshotPath is the directory of file snapshots, relative to the
	// test source file. Defaults to "snapshots".
	SnapshotPath string
	// SnapshotSuffix distinguishes variants of the same assertion; it is
	// appended to the snapshot name after an "@".
	SnapshotSuffix string
	// Description and Info are stored in the snapshot header.
	Description string
	Info        map[string]any
	// OmitExpression leaves the asserted expression out of the header.
	OmitExpression bool
	// InputFile records the fixture the assertion consumed, and gates
	// stale-snapshot rejection on its modification time.
	InputFile string
	// Comparator overrides the byte-exact default.
	Comparator Comparator

	redactions []boundRedaction
	filters    []Filter
}

// Redact registers a redaction at the locations the query selects. Queries
// are parsed eagerly; an invalid query panics, matching configuration-time
// error semantics. Redactions apply in registration order, later ones seeing
// the output of earlier ones.
func (s *Settings) Redact(query string, r Redaction) {
	s.redactions = append(s.redactions, boundRedaction{sel: selector.MustParse(query), red: r})
}

// AddFilter registers a regex substitution over the rendered text.
func (s *Settings) AddFilter(pattern string, replacement string) {
	s.filters = append(s.filters, Filter{Pattern: regexp.MustCompile(pattern), Replacement: replacement})
}

func (s *Settings) applyRedactions(v Content) Content {
	for _, b := range s.redactions {
		v = b.sel.Redact(v, b.red)
	}
	if s.SortMaps {
		v.SortMaps()
	}
	return v
}

func (s *Settings) applyFilters(text string) string {
	for _, f := range s.filters {
		text = f.Pattern.ReplaceAllString(text, f.Replacement)
	}
	return text
}

// merged returns a copy of parent overlaid with the overrides set on s.
func (s Settings) merged(parent Settings) Settings {
	out := parent
	if s.SortMaps {
		out.SortMaps = true
	}
	if s.SnapshotPath != "" {
		out.SnapshotPath = s.SnapshotPath
	}
	if s.SnapshotSuffix != "" {
		out.SnapshotSuffix = s.SnapshotSuffix
	}
	if s.Description != "" {
		out.Description = s.Description
	}
	if s.Info != nil {
		out.Info = s.Info
	}
	if s.OmitExpression {
		out.OmitExpression = true
	}
	if s.InputFile != "" {
		out.InputFile = s.InputFile
	}
	if s.Comparator != nil {
		out.Comparator = s.Comparator
	}
	out.redactions = append(append([]boundRedaction(nil), parent.redactions...), s.redactions...)
	out.filters = append(append([]Filter(nil), parent.filters...), s.filters...)
	return out
}

var settingsStack struct {
	mu    sync.Mutex
	stack []Settings
}

// WithSettings runs f with s layered over the currently active settings.
// The override is popped on every exit path, including panics. Nested calls
// stack; inner scopes inherit outer redactions and filters.
func WithSettings(s Settings, f func()) {
	settingsStack.mu.Lock()
	settingsStack.stack = append(settingsStack.stack, s.merged(currentSettingsLocked()))
	settingsStack.mu.Unlock()
	defer func() {
		settingsStack.mu.Lock()
		settingsStack.stack = settingsStack.stack[:len(settingsStack.stack)-1]
		settingsStack.mu.Unlock()
	}()
	f()
}

func currentSettingsLocked() Settings {
	if n := len(settingsStack.stack); n > 0 {
		return settingsStack.stack[n-1]
	}
	return Settings{}
}

func currentSettings() Settings {
	settingsStack.mu.Lock()
	defer settingsStack.mu.Unlock()
	return currentSettingsLocked()
}
