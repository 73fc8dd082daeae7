package snaptool

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// NamingClashError reports two test functions whose derived snapshot names
// collide, which would make them overwrite each other's snapshot file.
type NamingClashError struct {
	Name  string
	First string
	Other string
}

func (e *NamingClashError) Error() string {
	return fmt.Sprintf("snapshot name %q is claimed by both %s and %s; name one explicitly",
		e.Name, e.First, e.Other)
}

var nameRegistry = struct {
	mu sync.Mutex
	// owners maps source file + derived base name to the test that first
	// produced it, for clash detection.
	owners map[string]string
	// counters numbers repeated assertions of the same name in one test.
	counters map[string]int
}{
	owners:   map[string]string{},
	counters: map[string]int{},
}

// deriveName turns a test name into a snapshot name: the Test prefix (or a
// test_ prefix) is stripped, camel case becomes snake case, and subtest
// separators become "__". Repeated use within the same source file appends
// -2, -3 and so on.
func deriveName(testName, sourceFile string) (string, error) {
	segments := strings.Split(testName, "/")
	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		if i == 0 {
			seg = strings.TrimPrefix(seg, "Test")
			seg = strings.TrimPrefix(seg, "test_")
		}
		parts = append(parts, toSnake(seg))
	}
	base := strings.Trim(strings.Join(parts, "__"), "_")
	if base == "" {
		base = "snapshot"
	}

	nameRegistry.mu.Lock()
	defer nameRegistry.mu.Unlock()
	ownerKey := sourceFile + "|" + base
	if owner, ok := nameRegistry.owners[ownerKey]; ok && owner != testName {
		return "", &NamingClashError{Name: base, First: owner, Other: testName}
	}
	nameRegistry.owners[ownerKey] = testName

	counterKey := sourceFile + "|" + testName + "|" + base
	nameRegistry.counters[counterKey]++
	if n := nameRegistry.counters[counterKey]; n > 1 {
		return fmt.Sprintf("%s-%d", base, n), nil
	}
	return base, nil
}

func toSnake(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}

// resetNamesForTesting clears the registry between test scenarios.
func resetNamesForTesting() {
	nameRegistry.mu.Lock()
	defer nameRegistry.mu.Unlock()
	nameRegistry.owners = map[string]string{}
	nameRegistry.counters = map[string]int{}
}
