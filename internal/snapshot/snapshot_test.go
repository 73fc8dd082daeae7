package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single line trims", "  hello  ", "hello"},
		{"leading blank line dropped", "\nhello\nworld", "hello\nworld"},
		{"common indent stripped", "\n    a\n      b\n    c\n", "a\n  b\nc"},
		{"trailing blank lines dropped", "a\nb\n\n\n", "a\nb"},
		{"crlf normalized", "a\r\nb", "a\nb"},
		{"per line trailing spaces dropped", "\na   \nb\t\n", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewTextContents(KindInline, tt.in)
			if got.String() != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.in, got.String(), tt.want)
			}
		})
	}
}

func TestCanonicalInlineLayout(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"single line", "hello", true},
		{"empty", "", true},
		{"rewriter layout", "\n\ta\n\tb\n\t", true},
		{"crlf rewriter layout", "\r\n\ta\r\n\t", true},
		{"missing leading newline", "a\n\tb\n\t", false},
		{"missing trailing newline", "\n\ta\n\tb", false},
		{"bare multi-line", "a\nb", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalInlineLayout(tt.in); got != tt.want {
				t.Errorf("CanonicalInlineLayout(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMinIndentation(t *testing.T) {
	if got := minIndentation("    a\n  b\n\n      c"); got != 2 {
		t.Errorf("minIndentation = %d, want 2 (blank lines ignored)", got)
	}
	if got := minIndentation("plain"); got != 0 {
		t.Errorf("minIndentation = %d, want 0", got)
	}
}

func TestMatchesVsMatchesFully(t *testing.T) {
	a := NewTextContents(KindFile, "line\n")
	b := NewTextContents(KindFile, "line")
	if !a.Matches(b) {
		t.Error("trailing newline should not break the default match")
	}
	if a.MatchesFully(b) {
		t.Error("full match should see the trailing newline")
	}
}

func TestSerializeLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg__greeting.snap")
	snap := &Snapshot{
		ModuleName:   "pkg",
		SnapshotName: "greeting",
		Metadata: Metadata{
			SourceFile:    "pkg/greet_test.go",
			AssertionLine: 42,
			Expression:    "Greet()",
		},
		Contents: NewTextContents(KindFile, "hello\nworld"),
	}
	if err := snap.Save(path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.Contains(text, "---\nhello\nworld\n") {
		t.Errorf("serialized body malformed:\n%s", text)
	}
	if strings.Count(text, "\n\n") != 0 && strings.HasSuffix(text, "\n\n") {
		t.Errorf("more than one trailing newline:\n%q", text)
	}
	if strings.Contains(text, "assertion_line") {
		t.Error("accepted snapshot should not persist the assertion line")
	}

	loaded, legacy, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if legacy {
		t.Error("current format misdetected as legacy")
	}
	if loaded.ModuleName != "pkg" || loaded.SnapshotName != "greeting" {
		t.Errorf("identity = %q/%q", loaded.ModuleName, loaded.SnapshotName)
	}
	if got, _ := loaded.Text(); got != "hello\nworld" {
		t.Errorf("contents = %q", got)
	}
	if loaded.Metadata.Expression != "Greet()" {
		t.Errorf("expression = %q", loaded.Metadata.Expression)
	}
}

func TestSaveNewKeepsAssertionLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg__x.snap.new")
	snap := &Snapshot{
		SnapshotName: "x",
		Metadata:     Metadata{SourceFile: "x_test.go", AssertionLine: 7},
		Contents:     NewTextContents(KindFile, "v"),
	}
	if err := snap.SaveNew(path); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "assertion_line: 7") {
		t.Errorf("pending snapshot lost the assertion line:\n%s", raw)
	}
}

func TestLoadLegacyHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old__thing.snap")
	legacyText := strings.Join([]string{
		"Created: 2019-01-14T22:00:00Z",
		"Creator: snaptool@0.1.0",
		"Source: old/thing_test.go",
		"Expression: Render()",
		"---",
		"payload",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(legacyText), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, legacy, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !legacy {
		t.Error("legacy header not detected")
	}
	if snap.Metadata.SourceFile != "old/thing_test.go" {
		t.Errorf("source = %q", snap.Metadata.SourceFile)
	}

	// re-serializing upgrades to the current header
	out, err := snap.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Created:") {
		t.Errorf("legacy keys survived re-serialization:\n%s", out)
	}
	if !strings.Contains(out, "source: old/thing_test.go") {
		t.Errorf("upgraded header missing source:\n%s", out)
	}
}

func TestNamesOfPath(t *testing.T) {
	tests := []struct {
		path   string
		module string
		name   string
	}{
		{"snapshots/pkg__greeting.snap", "pkg", "greeting"},
		{"snapshots/pkg__greeting.snap.new", "pkg", "greeting"},
		{"snapshots/lonely.snap", "", "lonely"},
		{"pkg__a__b.snap", "pkg", "a__b"},
	}
	for _, tt := range tests {
		module, name := NamesOfPath(tt.path)
		if module != tt.module || name != tt.name {
			t.Errorf("NamesOfPath(%q) = (%q, %q), want (%q, %q)",
				tt.path, module, name, tt.module, tt.name)
		}
	}
}

func TestBinarySnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img__logo.snap")
	snap := &Snapshot{
		SnapshotName: "logo",
		Metadata:     Metadata{SnapshotKind: "binary", Extension: "png"},
		Contents:     BinaryContents{Extension: "png", Data: []byte{0x89, 'P', 'N', 'G'}},
	}
	if err := snap.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".png"); err != nil {
		t.Fatalf("binary sidecar missing: %v", err)
	}
	loaded, _, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	bin, ok := loaded.Contents.(BinaryContents)
	if !ok {
		t.Fatalf("contents type = %T", loaded.Contents)
	}
	if string(bin.Data) != "\x89PNG" || bin.Extension != "png" {
		t.Errorf("payload = %q ext %q", bin.Data, bin.Extension)
	}
}

func inlinePending(runID string, line uint32, text string) *PendingInline {
	return &PendingInline{
		RunID: runID,
		Line:  line,
		New: &Snapshot{
			SnapshotName: "inline",
			Contents:     NewTextContents(KindInline, text),
		},
	}
}

func TestPendingBatchKeepsLatestRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".demo_test.go.pending-snap")
	// two runs; the second only touches line 10
	for _, rec := range []*PendingInline{
		inlinePending("run-1", 10, "old a"),
		inlinePending("run-1", 20, "old b"),
		inlinePending("run-2", 10, "new a"),
	} {
		if err := rec.Append(path); err != nil {
			t.Fatal(err)
		}
	}
	live, err := LoadBatch(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 1 {
		t.Fatalf("live records = %d, want only the latest run", len(live))
	}
	if got, _ := live[0].New.Text(); got != "new a" {
		t.Errorf("record contents = %q", got)
	}
}

func TestPendingBatchPassedMarkerRetiresLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".demo_test.go.pending-snap")
	for _, rec := range []*PendingInline{
		inlinePending("run-1", 10, "update"),
		{RunID: "run-1", Line: 10}, // the assertion passed afterwards
	} {
		if err := rec.Append(path); err != nil {
			t.Fatal(err)
		}
	}
	live, err := LoadBatch(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 0 {
		t.Fatalf("live records = %d, want none", len(live))
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty batch should be deleted on load")
	}
}

func TestSaveBatchRemovesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".x_test.go.pending-snap")
	if err := inlinePending("r", 1, "v").Append(path); err != nil {
		t.Fatal(err)
	}
	if err := SaveBatch(path, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("batch file should be gone")
	}
}
