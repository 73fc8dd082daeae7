// Package output prints snapshot mismatches: names, sources and unified
// diffs, with the verbosity controlled by the configured output mode.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"

	"snaptool/internal/snapshot"
)

// Mode controls how much a failing assertion prints.
type Mode string

const (
	ModeDiff    Mode = "diff"
	ModeSummary Mode = "summary"
	ModeMinimal Mode = "minimal"
	ModeNone    Mode = "none"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	sourceStyle  = lipgloss.NewStyle().Faint(true)
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// Printer writes snapshot mismatch reports.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter writes reports to w in the given mode.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Mismatch reports a failed comparison between the accepted reference (nil
// for a brand-new snapshot) and the candidate.
func (p *Printer) Mismatch(name string, ref, got *snapshot.Snapshot) {
	if p.mode == ModeNone {
		return
	}
	verb := "changed"
	if ref == nil {
		verb = "is new"
	}
	fmt.Fprintln(p.w, headerStyle.Render(fmt.Sprintf("snapshot %s %s", nameStyle.Render(name), verb)))
	if src := got.Metadata.SourceFile; src != "" {
		line := ""
		if got.Metadata.AssertionLine > 0 {
			line = fmt.Sprintf(":%d", got.Metadata.AssertionLine)
		}
		fmt.Fprintln(p.w, sourceStyle.Render("  at "+src+line))
	}
	if p.mode == ModeMinimal {
		return
	}
	if p.mode == ModeSummary {
		p.summary(ref, got)
		return
	}
	p.diff(ref, got)
}

func (p *Printer) summary(ref, got *snapshot.Snapshot) {
	refText := ""
	if ref != nil {
		refText, _ = ref.Text()
	}
	gotText, _ := got.Text()
	fmt.Fprintf(p.w, "  old: %d line(s), new: %d line(s)\n",
		lineCount(refText), lineCount(gotText))
}

func (p *Printer) diff(ref, got *snapshot.Snapshot) {
	refText := ""
	if ref != nil {
		refText, _ = ref.Text()
	}
	gotText, _ := got.Text()
	fmt.Fprint(p.w, RenderDiff(refText, gotText))
}

// RenderDiff returns a colored unified diff between the accepted text and
// the candidate text.
func RenderDiff(old, new string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(new),
		FromFile: "old snapshot",
		ToFile:   "new results",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("diff failed: %v\n", err)
	}
	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			b.WriteString(addedStyle.Render(strings.TrimRight(line, "\n")) + "\n")
		case strings.HasPrefix(line, "-"):
			b.WriteString(removedStyle.Render(strings.TrimRight(line, "\n")) + "\n")
		case strings.HasPrefix(line, "@@"):
			b.WriteString(hunkStyle.Render(strings.TrimRight(line, "\n")) + "\n")
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}
