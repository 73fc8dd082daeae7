package output

import (
	"strings"
	"testing"

	"snaptool/internal/snapshot"
)

func textSnap(text string) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		SnapshotName: "sample",
		Metadata:     snapshot.Metadata{SourceFile: "pkg/sample_test.go", AssertionLine: 12},
		Contents:     snapshot.NewTextContents(snapshot.KindFile, text),
	}
}

func TestRenderDiff(t *testing.T) {
	got := RenderDiff("a\nb\nc", "a\nB\nc")
	if !strings.Contains(got, "-b") || !strings.Contains(got, "+B") {
		t.Errorf("diff missing changed lines:\n%s", got)
	}
	if !strings.Contains(got, "old snapshot") || !strings.Contains(got, "new results") {
		t.Errorf("diff missing file headers:\n%s", got)
	}
}

func TestPrinterModes(t *testing.T) {
	ref := textSnap("old")
	got := textSnap("new")

	tests := []struct {
		mode     Mode
		wantDiff bool
		wantAny  bool
	}{
		{ModeDiff, true, true},
		{ModeSummary, false, true},
		{ModeMinimal, false, true},
		{ModeNone, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			var b strings.Builder
			NewPrinter(&b, tt.mode).Mismatch("sample", ref, got)
			out := b.String()
			if tt.wantAny != (out != "") {
				t.Fatalf("output presence = %v, want %v:\n%s", out != "", tt.wantAny, out)
			}
			hasDiff := strings.Contains(out, "+new")
			if hasDiff != tt.wantDiff {
				t.Errorf("diff presence = %v, want %v:\n%s", hasDiff, tt.wantDiff, out)
			}
		})
	}
}

func TestPrinterNewSnapshot(t *testing.T) {
	var b strings.Builder
	NewPrinter(&b, ModeMinimal).Mismatch("fresh", nil, textSnap("v"))
	if !strings.Contains(b.String(), "is new") {
		t.Errorf("new snapshot not reported as new:\n%s", b.String())
	}
}
