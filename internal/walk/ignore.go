package walk

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreRules is the parsed .gitignore of a workspace root. Only the root
// file is consulted; nested ignore files are rare in snapshot trees and not
// worth a per-directory parse.
type ignoreRules struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	pattern string
	negate  bool
	dirOnly bool
}

// loadIgnoreRules reads root/.gitignore. A missing or unreadable file
// yields empty rules.
func loadIgnoreRules(root string) *ignoreRules {
	rules := &ignoreRules{}
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return rules
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := ignorePattern{pattern: line}
		if strings.HasPrefix(p.pattern, "!") {
			p.negate = true
			p.pattern = p.pattern[1:]
		}
		if strings.HasSuffix(p.pattern, "/") {
			p.dirOnly = true
			p.pattern = strings.TrimSuffix(p.pattern, "/")
		}
		switch {
		case strings.HasPrefix(p.pattern, "/"):
			p.pattern = strings.TrimPrefix(p.pattern, "/")
		case !strings.Contains(p.pattern, "/"):
			// A pattern without a slash matches at any depth.
			p.pattern = "**/" + p.pattern
		}
		rules.patterns = append(rules.patterns, p)
	}
	return rules
}

// Ignored reports whether the root-relative path is excluded. The last
// matching pattern decides, so a later `!` pattern re-includes.
func (r *ignoreRules) Ignored(rel string, isDir bool) bool {
	if r == nil || len(r.patterns) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)
	ignored := false
	for _, p := range r.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		ok, err := doublestar.Match(p.pattern, rel)
		if err != nil || !ok {
			continue
		}
		ignored = !p.negate
	}
	return ignored
}
