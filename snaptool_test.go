package snaptool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snaptool/internal/snapshot"
)

type fakeT struct {
	name   string
	errors []string
	fatals []string
}

func (f *fakeT) Helper()      {}
func (f *fakeT) Name() string { return f.name }
func (f *fakeT) Errorf(format string, args ...any) {
	f.errors = append(f.errors, format)
}
func (f *fakeT) Fatalf(format string, args ...any) {
	f.fatals = append(f.fatals, format)
}

func (f *fakeT) failed() bool { return len(f.errors) > 0 || len(f.fatals) > 0 }

// setupEnv isolates a test from ambient tool configuration and caches.
func setupEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"CI", "TF_BUILD",
		"SNAPTOOL_UPDATE", "SNAPTOOL_OUTPUT", "SNAPTOOL_FORCE_UPDATE_SNAPSHOTS",
		"SNAPTOOL_REQUIRE_FULL_MATCH", "SNAPTOOL_FORCE_PASS",
		"SNAPTOOL_PENDING_ROOT", "SNAPTOOL_GLOB_FILTER",
		"SNAPTOOL_WORKSPACE_ROOT", "SNAPTOOL_SNAPSHOT_REFERENCES_FILE",
		"SNAPTOOL_LOG", "SNAPTOOL_LOG_FILE",
	} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
	resetRuntimeForTesting()
	resetNamesForTesting()
}

// snapshotDirSettings points file snapshots into a temp dir, relative to
// this package's directory as SnapshotPath requires.
func snapshotDirSettings(t *testing.T) (Settings, string) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	rel, err := filepath.Rel(wd, dir)
	if err != nil {
		t.Fatal(err)
	}
	return Settings{SnapshotPath: rel}, dir
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		testName string
		want     string
	}{
		{"TestParseHeader", "parse_header"},
		{"TestHTTPServer", "http_server"},
		{"TestParse/empty_input", "parse__empty_input"},
		{"TestParse/with spaces", "parse__with_spaces"},
		{"Test", "snapshot"},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			resetNamesForTesting()
			got, err := deriveName(tt.testName, "file_test.go")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("deriveName(%q) = %q, want %q", tt.testName, got, tt.want)
			}
		})
	}
}

func TestDeriveNameCounters(t *testing.T) {
	resetNamesForTesting()
	first, _ := deriveName("TestThing", "a_test.go")
	second, _ := deriveName("TestThing", "a_test.go")
	third, _ := deriveName("TestThing", "a_test.go")
	if first != "thing" || second != "thing-2" || third != "thing-3" {
		t.Errorf("got %q, %q, %q", first, second, third)
	}
}

func TestDeriveNameClash(t *testing.T) {
	resetNamesForTesting()
	if _, err := deriveName("TestThing", "a_test.go"); err != nil {
		t.Fatal(err)
	}
	_, err := deriveName("Test_thing", "a_test.go")
	if err == nil {
		t.Fatal("expected clash error")
	}
	if !strings.Contains(err.Error(), "claimed by both") {
		t.Errorf("unexpected message: %v", err)
	}
	// Same base from a different file does not clash.
	if _, err := deriveName("TestThing", "b_test.go"); err != nil {
		t.Errorf("cross-file name should not clash: %v", err)
	}
}

func TestToSnake(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ParseHeader", "parse_header"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
		{"with spaces", "with_spaces"},
		{"with-dash", "with_dash"},
		{"V2Thing", "v2_thing"},
	}
	for _, tt := range tests {
		if got := toSnake(tt.in); got != tt.want {
			t.Errorf("toSnake(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithSettingsNesting(t *testing.T) {
	outer := Settings{SnapshotSuffix: "outer", Description: "d"}
	outer.Redact(".secret", StaticRedaction("[redacted]"))

	WithSettings(outer, func() {
		inner := Settings{SnapshotSuffix: "inner"}
		inner.Redact(".token", StaticRedaction("[token]"))
		WithSettings(inner, func() {
			s := currentSettings()
			if s.SnapshotSuffix != "inner" {
				t.Errorf("suffix = %q, want inner", s.SnapshotSuffix)
			}
			if s.Description != "d" {
				t.Errorf("description not inherited: %q", s.Description)
			}
			if len(s.redactions) != 2 {
				t.Errorf("redactions = %d, want 2", len(s.redactions))
			}
		})
		if s := currentSettings(); s.SnapshotSuffix != "outer" || len(s.redactions) != 1 {
			t.Errorf("outer scope not restored: %+v", s)
		}
	})
	if s := currentSettings(); s.SnapshotSuffix != "" {
		t.Errorf("settings leaked past WithSettings: %+v", s)
	}
}

func TestSettingsRedactBadQueryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid selector")
		}
	}()
	var s Settings
	s.Redact(".foo[", StaticRedaction(0))
}

func TestAssertSnapshotNewWritesPending(t *testing.T) {
	setupEnv(t)
	settings, dir := snapshotDirSettings(t)

	ft := &fakeT{name: "TestGreeting"}
	WithSettings(settings, func() {
		AssertNamedSnapshot(ft, "greeting", "hello\nworld")
	})

	if !ft.failed() {
		t.Fatal("new snapshot should fail until accepted")
	}
	pendingPath := filepath.Join(dir, "module__greeting.snap.new")
	data, err := os.ReadFile(pendingPath)
	if err != nil {
		t.Fatalf("pending snapshot not written: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "hello\nworld") {
		t.Errorf("pending snapshot missing contents:\n%s", text)
	}
	if !strings.Contains(text, "assertion_line:") {
		t.Errorf("pending snapshot should keep the assertion line:\n%s", text)
	}
}

func TestAssertSnapshotMatchesAccepted(t *testing.T) {
	setupEnv(t)
	settings, dir := snapshotDirSettings(t)

	accepted := &snapshot.Snapshot{
		ModuleName:   "module",
		SnapshotName: "greeting",
		Contents:     snapshot.NewTextContents(snapshot.KindFile, "hello\nworld"),
	}
	if err := accepted.Save(filepath.Join(dir, "module__greeting.snap")); err != nil {
		t.Fatal(err)
	}

	ft := &fakeT{name: "TestGreeting"}
	WithSettings(settings, func() {
		AssertNamedSnapshot(ft, "greeting", "hello\nworld")
	})
	if ft.failed() {
		t.Fatalf("matching snapshot should pass, got errors=%v fatals=%v", ft.errors, ft.fatals)
	}
}

func TestAssertSnapshotMatchRemovesStalePending(t *testing.T) {
	setupEnv(t)
	settings, dir := snapshotDirSettings(t)

	accepted := &snapshot.Snapshot{
		ModuleName:   "module",
		SnapshotName: "greeting",
		Contents:     snapshot.NewTextContents(snapshot.KindFile, "hello"),
	}
	if err := accepted.Save(filepath.Join(dir, "module__greeting.snap")); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "module__greeting.snap.new")
	if err := os.WriteFile(stale, []byte("leftover"), 0o644); err != nil {
		t.Fatal(err)
	}

	ft := &fakeT{name: "TestGreeting"}
	WithSettings(settings, func() {
		AssertNamedSnapshot(ft, "greeting", "hello")
	})
	if ft.failed() {
		t.Fatalf("unexpected failure: %v %v", ft.errors, ft.fatals)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale pending snapshot should be removed on match")
	}
}

func TestAssertSnapshotUpdateAlways(t *testing.T) {
	setupEnv(t)
	t.Setenv("SNAPTOOL_UPDATE", "always")
	resetRuntimeForTesting()
	settings, dir := snapshotDirSettings(t)

	ft := &fakeT{name: "TestGreeting"}
	WithSettings(settings, func() {
		AssertNamedSnapshot(ft, "greeting", "fresh contents")
	})
	if ft.failed() {
		t.Fatalf("update=always should pass, got %v %v", ft.errors, ft.fatals)
	}
	data, err := os.ReadFile(filepath.Join(dir, "module__greeting.snap"))
	if err != nil {
		t.Fatalf("accepted snapshot not written: %v", err)
	}
	if !strings.Contains(string(data), "fresh contents") {
		t.Errorf("unexpected snapshot:\n%s", data)
	}
	if strings.Contains(string(data), "assertion_line:") {
		t.Error("accepted snapshot must not carry the assertion line")
	}
}

func TestAssertSnapshotUpdateNo(t *testing.T) {
	setupEnv(t)
	t.Setenv("SNAPTOOL_UPDATE", "no")
	resetRuntimeForTesting()
	settings, dir := snapshotDirSettings(t)

	ft := &fakeT{name: "TestGreeting"}
	WithSettings(settings, func() {
		AssertNamedSnapshot(ft, "greeting", "anything")
	})
	if !ft.failed() {
		t.Fatal("update=no should fail on a new snapshot")
	}
	if _, err := os.Stat(filepath.Join(dir, "module__greeting.snap.new")); !os.IsNotExist(err) {
		t.Error("update=no must not write pending artifacts")
	}
}

func TestAssertSnapshotGlobFilterSkips(t *testing.T) {
	setupEnv(t)
	t.Setenv("SNAPTOOL_GLOB_FILTER", "other_*")
	resetRuntimeForTesting()
	settings, dir := snapshotDirSettings(t)

	ft := &fakeT{name: "TestGreeting"}
	WithSettings(settings, func() {
		AssertNamedSnapshot(ft, "greeting", "anything")
	})
	if ft.failed() {
		t.Fatalf("filtered assertion should pass: %v %v", ft.errors, ft.fatals)
	}
	if _, err := os.Stat(filepath.Join(dir, "module__greeting.snap.new")); !os.IsNotExist(err) {
		t.Error("filtered assertion must not write anything")
	}
}

func TestAssertYAMLSnapshotWithRedaction(t *testing.T) {
	setupEnv(t)
	t.Setenv("SNAPTOOL_UPDATE", "always")
	resetRuntimeForTesting()
	settings, dir := snapshotDirSettings(t)
	settings.Redact(".token", StaticRedaction("[token]"))

	type login struct {
		User  string `json:"user"`
		Token string `json:"token"`
	}
	ft := &fakeT{name: "TestLogin"}
	WithSettings(settings, func() {
		AssertYAMLSnapshot(ft, login{User: "ada", Token: "s3cr3t"})
	})
	if ft.failed() {
		t.Fatalf("unexpected failure: %v %v", ft.errors, ft.fatals)
	}
	data, err := os.ReadFile(filepath.Join(dir, "module__login.snap"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if strings.Contains(text, "s3cr3t") {
		t.Errorf("token leaked into snapshot:\n%s", text)
	}
	if !strings.Contains(text, "[token]") {
		t.Errorf("redaction placeholder missing:\n%s", text)
	}
	if !strings.Contains(text, "user: ada") {
		t.Errorf("expected YAML rendering:\n%s", text)
	}
}

func TestAssertSnapshotSuffix(t *testing.T) {
	setupEnv(t)
	t.Setenv("SNAPTOOL_UPDATE", "always")
	resetRuntimeForTesting()
	settings, dir := snapshotDirSettings(t)
	settings.SnapshotSuffix = "variant"

	ft := &fakeT{name: "TestGreeting"}
	WithSettings(settings, func() {
		AssertNamedSnapshot(ft, "greeting", "hello")
	})
	if ft.failed() {
		t.Fatalf("unexpected failure: %v %v", ft.errors, ft.fatals)
	}
	if _, err := os.Stat(filepath.Join(dir, "module__greeting@variant.snap")); err != nil {
		t.Errorf("suffixed snapshot missing: %v", err)
	}
}

func TestAssertBinarySnapshot(t *testing.T) {
	setupEnv(t)
	t.Setenv("SNAPTOOL_UPDATE", "always")
	resetRuntimeForTesting()
	settings, dir := snapshotDirSettings(t)

	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	ft := &fakeT{name: "TestImage"}
	WithSettings(settings, func() {
		AssertNamedBinarySnapshot(ft, "image", "png", payload)
	})
	if ft.failed() {
		t.Fatalf("unexpected failure: %v %v", ft.errors, ft.fatals)
	}
	sidecar := filepath.Join(dir, "module__image.snap.png")
	data, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatalf("binary sidecar missing: %v", err)
	}
	if string(data) != string(payload) {
		t.Error("sidecar payload mismatch")
	}
}

func TestAssertInlineSnapshotMatch(t *testing.T) {
	setupEnv(t)

	ft := &fakeT{name: "TestInline"}
	AssertInlineSnapshot(ft, "hello\nworld", `
		hello
		world
	`)
	if ft.failed() {
		t.Fatalf("normalized inline literal should match: %v %v", ft.errors, ft.fatals)
	}
}

func TestAssertInlineSnapshotPending(t *testing.T) {
	setupEnv(t)
	pendingRoot := t.TempDir()
	t.Setenv("SNAPTOOL_UPDATE", "new")
	t.Setenv("SNAPTOOL_PENDING_ROOT", pendingRoot)
	resetRuntimeForTesting()

	ft := &fakeT{name: "TestInline"}
	AssertInlineSnapshot(ft, "actual value", "expected value")
	if !ft.failed() {
		t.Fatal("mismatched inline snapshot should fail")
	}

	batch := filepath.Join(pendingRoot, ".snaptool_test.go.pending-snap")
	records, err := snapshot.LoadBatch(batch)
	if err != nil {
		t.Fatalf("pending batch not readable: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d pending records, want 1", len(records))
	}
	text, _ := records[0].New.Text()
	if text != "actual value" {
		t.Errorf("pending record contents = %q", text)
	}
	old, _ := records[0].Old.Text()
	if old != "expected value" {
		t.Errorf("pending record old contents = %q", old)
	}
}

func TestReferencesFileRecordsAcceptedPaths(t *testing.T) {
	setupEnv(t)
	refFile := filepath.Join(t.TempDir(), "refs")
	t.Setenv("SNAPTOOL_SNAPSHOT_REFERENCES_FILE", refFile)
	resetRuntimeForTesting()
	settings, dir := snapshotDirSettings(t)

	accepted := &snapshot.Snapshot{
		ModuleName:   "module",
		SnapshotName: "greeting",
		Contents:     snapshot.NewTextContents(snapshot.KindFile, "hello"),
	}
	target := filepath.Join(dir, "module__greeting.snap")
	if err := accepted.Save(target); err != nil {
		t.Fatal(err)
	}

	ft := &fakeT{name: "TestGreeting"}
	WithSettings(settings, func() {
		AssertNamedSnapshot(ft, "greeting", "hello")
	})
	if ft.failed() {
		t.Fatalf("unexpected failure: %v %v", ft.errors, ft.fatals)
	}
	data, err := os.ReadFile(refFile)
	if err != nil {
		t.Fatalf("references file not written: %v", err)
	}
	if !strings.Contains(string(data), target) {
		t.Errorf("references file missing %s:\n%s", target, data)
	}
}
