package snaptool

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"snaptool/internal/config"
	"snaptool/internal/slogutil"
	"snaptool/internal/snapshot"
)

// inlineFixture writes src as a standalone test source file and builds an
// assertion pointing at the call on line. The returned fakeT records
// failures without touching the real test.
func inlineFixture(t *testing.T, src string, line uint32) (*assertion, *fakeT) {
	t.Helper()
	setupEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "demo_test.go")
	if err := os.WriteFile(file, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	ft := &fakeT{name: "TestDemo"}
	return &assertion{
		t:    ft,
		file: file,
		line: line,
		dir:  dir,
		root: dir,
		cfg:  config.Default(),
	}, ft
}

func TestInlineForceUpdateRewritesOldLayout(t *testing.T) {
	src := "package demo\n\nfunc demo() {\n\tAssertInlineSnapshot(nil, value(), `\n\t\t\ta\n\t\t\tb\n\t`)\n}\n"
	a, ft := inlineFixture(t, src, 4)
	a.cfg.Behavior.ForceUpdate = true

	a.assertInline("\n\t\t\ta\n\t\t\tb\n\t", "a\nb")
	if ft.failed() {
		t.Fatalf("matching literal should pass: %v %v", ft.errors, ft.fatals)
	}
	data, err := os.ReadFile(a.file)
	if err != nil {
		t.Fatal(err)
	}
	want := "AssertInlineSnapshot(nil, value(), `\n\ta\n\tb\n\t`)"
	if !strings.Contains(string(data), want) {
		t.Errorf("over-indented literal not re-normalized:\n%s", data)
	}
}

func TestInlineForceUpdateKeepsCanonicalLiteral(t *testing.T) {
	src := "package demo\n\nfunc demo() {\n\tAssertInlineSnapshot(nil, value(), `\n\ta\n\tb\n\t`)\n}\n"
	a, ft := inlineFixture(t, src, 4)
	a.cfg.Behavior.ForceUpdate = true
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(a.file, past, past); err != nil {
		t.Fatal(err)
	}

	a.assertInline("\n\ta\n\tb\n\t", "a\nb")
	if ft.failed() {
		t.Fatalf("matching literal should pass: %v %v", ft.errors, ft.fatals)
	}
	info, err := os.Stat(a.file)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(past) {
		t.Error("canonical literal should not be rewritten")
	}
}

func TestInlineInPlaceUpdateNormalizesTrailingNewline(t *testing.T) {
	src := "package demo\n\nfunc demo() {\n\tAssertInlineSnapshot(nil, value(), \"\")\n}\n"
	a, ft := inlineFixture(t, src, 4)
	a.cfg.Behavior.Update = "always"

	a.assertInline("", "a\nb\n")
	if ft.failed() {
		t.Fatalf("in-place update should pass: %v %v", ft.errors, ft.fatals)
	}
	data, err := os.ReadFile(a.file)
	if err != nil {
		t.Fatal(err)
	}
	want := "AssertInlineSnapshot(nil, value(), `\n\ta\n\tb\n\t`)"
	if !strings.Contains(string(data), want) {
		t.Errorf("literal not written in normalized form:\n%s", data)
	}
	if strings.Contains(string(data), "b\n\n") {
		t.Errorf("trailing newline left a blank line inside the literal:\n%s", data)
	}
}

func TestInlineNonCanonicalLiteralWarns(t *testing.T) {
	src := "package demo\n\nfunc demo() {\n\tAssertInlineSnapshot(nil, value(), \"a\\nb\")\n}\n"
	a, ft := inlineFixture(t, src, 4)

	var buf bytes.Buffer
	old := logger
	logger = slogutil.NewLogger(&buf, slog.LevelInfo)
	defer func() { logger = old }()

	a.assertInline("a\nb", "a\nb")
	if ft.failed() {
		t.Fatalf("matching literal should pass: %v %v", ft.errors, ft.fatals)
	}
	if !strings.Contains(buf.String(), "begin and end with a newline") {
		t.Errorf("no layout warning logged:\n%s", buf.String())
	}
}

func TestInlineCanonicalLiteralDoesNotWarn(t *testing.T) {
	src := "package demo\n\nfunc demo() {\n\tAssertInlineSnapshot(nil, value(), `\n\ta\n\tb\n\t`)\n}\n"
	a, _ := inlineFixture(t, src, 4)

	var buf bytes.Buffer
	old := logger
	logger = slogutil.NewLogger(&buf, slog.LevelInfo)
	defer func() { logger = old }()

	a.assertInline("\n\ta\n\tb\n\t", "a\nb")
	if strings.Contains(buf.String(), "newline") {
		t.Errorf("canonical layout should not warn:\n%s", buf.String())
	}
}

func TestAssertSnapshotForcePass(t *testing.T) {
	setupEnv(t)
	t.Setenv("SNAPTOOL_FORCE_PASS", "1")
	resetRuntimeForTesting()
	settings, dir := snapshotDirSettings(t)

	ft := &fakeT{name: "TestForcePass"}
	WithSettings(settings, func() {
		AssertSnapshot(ft, "some value")
	})
	if ft.failed() {
		t.Fatalf("force-pass should suppress the failure: %v %v", ft.errors, ft.fatals)
	}
	pendingPath := filepath.Join(dir, "module__force_pass.snap.new")
	if _, err := os.Stat(pendingPath); err != nil {
		t.Errorf("pending snapshot still expected under force-pass: %v", err)
	}
}

func TestStructuralComparatorSettings(t *testing.T) {
	setupEnv(t)
	settings, dir := snapshotDirSettings(t)
	settings.Comparator = StructuralJSONComparator()

	accepted := &snapshot.Snapshot{
		ModuleName:   "module",
		SnapshotName: "structural",
		Contents:     snapshot.NewTextContents(snapshot.KindFile, `{"alpha":1,"beta":[1,2]}`),
	}
	if err := accepted.Save(filepath.Join(dir, "module__structural.snap")); err != nil {
		t.Fatal(err)
	}

	ft := &fakeT{name: "TestStructural"}
	WithSettings(settings, func() {
		AssertJSONSnapshot(ft, map[string]any{"alpha": 1, "beta": []int{1, 2}})
	})
	if ft.failed() {
		t.Fatalf("structural comparator should accept reformatted JSON: %v %v", ft.errors, ft.fatals)
	}
}

func TestRuntimeLoggerHonorsLogFile(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "run.log")
	t.Setenv("SNAPTOOL_LOG_FILE", path)

	lg := newRuntimeLogger()
	lg.Info("File logging active", "run", "test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "File logging active") {
		t.Errorf("log file contents = %q", data)
	}
}
