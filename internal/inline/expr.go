package inline

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// ValueExprAt returns the source text of the value argument (the second
// argument) of the snapshot assertion call touching the given line. Used to
// record the asserted expression in snapshot metadata.
func ValueExprAt(src []byte, filename string, line int) (string, bool) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, 0)
	if err != nil {
		return "", false
	}
	var found string
	ast.Inspect(file, func(n ast.Node) bool {
		if found != "" {
			return false
		}
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		name := calleeName(call)
		if !strings.HasSuffix(name, "Snapshot") || len(call.Args) < 2 {
			return true
		}
		start := fset.Position(call.Pos()).Line
		end := fset.Position(call.End()).Line
		if line < start || line > end {
			return true
		}
		arg := call.Args[1]
		found = string(src[fset.Position(arg.Pos()).Offset:fset.Position(arg.End()).Offset])
		return false
	})
	return found, found != ""
}
