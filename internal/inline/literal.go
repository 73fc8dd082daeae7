package inline

import (
	"strconv"
	"strings"
)

// formatLiteral renders contents as the Go string literal to splice into a
// call site. The choice of literal kind depends only on the contents:
//
//   - multi-line text goes into a backtick literal laid out across lines and
//     re-indented to the call site, so the source stays readable and the
//     normalization on read recovers the exact value;
//   - single-line text needing escapes (a quote or backslash) also goes raw,
//     on one line;
//   - anything a raw literal cannot hold (a backtick, a carriage return, or
//     other control characters) falls back to an escaped quoted literal;
//   - plain single-line text is simply quoted.
func formatLiteral(contents, indent string) string {
	if !rawRepresentable(contents) {
		return strconv.Quote(contents)
	}
	if strings.Contains(contents, "\n") {
		return multilineRaw(contents, indent)
	}
	if strings.ContainsAny(contents, "\"\\") {
		return "`" + contents + "`"
	}
	return strconv.Quote(contents)
}

// rawRepresentable reports whether a backtick literal can hold the text. Raw
// literals cannot contain a backtick, and carriage returns inside them are
// silently discarded by the language, so both force the quoted form. Other
// control characters besides newline and tab are kept escaped for
// readability.
func rawRepresentable(contents string) bool {
	for _, r := range contents {
		switch {
		case r == '`' || r == '\r':
			return false
		case r < 0x20 && r != '\n' && r != '\t':
			return false
		case r == 0x7f:
			return false
		}
	}
	return true
}

// multilineRaw lays the text out as
//
//	`
//	<indent>line
//	<indent>`
//
// Blank lines stay empty rather than carrying trailing indentation.
func multilineRaw(contents, indent string) string {
	var b strings.Builder
	b.WriteString("`\n")
	for _, line := range strings.Split(contents, "\n") {
		if line != "" {
			b.WriteString(indent)
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	b.WriteString(indent)
	b.WriteByte('`')
	return b.String()
}
