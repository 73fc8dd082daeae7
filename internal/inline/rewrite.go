// Package inline rewrites the trailing string-literal argument of snapshot
// assertion calls inside Go test sources. Only the literal bytes change;
// every other byte of the file, including comments and formatting, is
// preserved exactly.
package inline

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"sort"
	"strings"
)

// Update replaces the literal of the assertion call starting on Line with a
// literal holding Contents. Indentation and literal kind are derived from
// the call site and the contents.
type Update struct {
	Line     uint32
	Contents string
}

// TargetNotFoundError reports an update whose call site no longer exists at
// the recorded line. The remaining updates of the batch still apply.
type TargetNotFoundError struct {
	Path string
	Line uint32
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("%s:%d: no snapshot assertion with a trailing string literal found", e.Path, e.Line)
}

// CorruptionError reports edits that cannot be applied coherently, such as
// overlapping literal spans. No output is produced.
type CorruptionError struct {
	Path   string
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: refusing to rewrite: %s", e.Path, e.Reason)
}

type callSite struct {
	startLine int
	endLine   int
	start     int // byte offset of the literal
	end       int
	indent    string
	consumed  bool
}

// Rewrite applies updates to src and returns the new file contents plus the
// updates whose call sites were missing. A parse failure or incoherent edit
// set returns an error and no output.
func Rewrite(src []byte, filename string, updates []Update) ([]byte, []*TargetNotFoundError, error) {
	sites, err := collectCallSites(src, filename)
	if err != nil {
		return nil, nil, err
	}

	type edit struct {
		start, end  int
		replacement string
	}
	var edits []edit
	var missed []*TargetNotFoundError
	for _, up := range updates {
		site := claimSite(sites, int(up.Line))
		if site == nil {
			missed = append(missed, &TargetNotFoundError{Path: filename, Line: up.Line})
			continue
		}
		edits = append(edits, edit{
			start:       site.start,
			end:         site.end,
			replacement: formatLiteral(up.Contents, site.indent),
		})
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var out strings.Builder
	prev := 0
	for _, e := range edits {
		if e.start < prev {
			return nil, nil, &CorruptionError{Path: filename, Reason: "overlapping literal edits"}
		}
		if e.end > len(src) {
			return nil, nil, &CorruptionError{Path: filename, Reason: "edit span beyond end of file"}
		}
		out.Write(src[prev:e.start])
		out.WriteString(e.replacement)
		prev = e.end
	}
	out.Write(src[prev:])
	return []byte(out.String()), missed, nil
}

// RewriteFile is Rewrite over a file on disk. The file is only written when
// at least one update applied and actually changed the source.
func RewriteFile(path string, updates []Update) ([]*TargetNotFoundError, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rewritten, missed, err := Rewrite(src, path, updates)
	if err != nil {
		return nil, err
	}
	if len(missed) == len(updates) || bytes.Equal(rewritten, src) {
		return missed, nil
	}
	if err := os.WriteFile(path, rewritten, 0o644); err != nil {
		return missed, err
	}
	return missed, nil
}

func collectCallSites(src []byte, filename string) ([]*callSite, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, 0)
	if err != nil {
		return nil, &CorruptionError{Path: filename, Reason: fmt.Sprintf("source does not parse: %v", err)}
	}
	var sites []*callSite
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if !isAssertionName(calleeName(call)) || len(call.Args) == 0 {
			return true
		}
		lit, ok := call.Args[len(call.Args)-1].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		pos := fset.Position(call.Pos())
		sites = append(sites, &callSite{
			startLine: pos.Line,
			endLine:   fset.Position(call.End()).Line,
			start:     fset.Position(lit.Pos()).Offset,
			end:       fset.Position(lit.End()).Offset,
			indent:    lineIndent(src, pos.Offset, pos.Column),
		})
		return true
	})
	return sites, nil
}

func calleeName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		return fn.Sel.Name
	}
	return ""
}

func isAssertionName(name string) bool {
	return strings.HasSuffix(name, "InlineSnapshot")
}

// claimSite finds the first unconsumed call touching the line. Multi-line
// calls are addressable by any line they span, since the runtime may report
// the closing line of the call rather than its first. Two assertions sharing
// a line each take one update in order.
func claimSite(sites []*callSite, line int) *callSite {
	for _, s := range sites {
		if line >= s.startLine && line <= s.endLine && !s.consumed {
			s.consumed = true
			return s
		}
	}
	return nil
}

// lineIndent returns the whitespace prefix of the line the call begins on.
func lineIndent(src []byte, callOffset, column int) string {
	lineStart := callOffset - (column - 1)
	if lineStart < 0 {
		lineStart = 0
	}
	i := lineStart
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	return string(src[lineStart:i])
}
