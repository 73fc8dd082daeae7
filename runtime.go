package snaptool

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"snaptool/internal/config"
	"snaptool/internal/inline"
	"snaptool/internal/output"
	"snaptool/internal/pending"
	"snaptool/internal/slogutil"
	"snaptool/internal/snapshot"
)

// TestingT is the subset of *testing.T the assertion helpers need.
type TestingT interface {
	Helper()
	Name() string
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// runID stamps every pending record written by this process, so stale
// records from earlier runs can be told apart.
var runID = uuid.NewString()

var logger = newRuntimeLogger()

// newRuntimeLogger builds the assertion-time logger. SNAPTOOL_LOG picks the
// level, and SNAPTOOL_LOG_FILE tees every record into the named file so test
// runs under a harness keep a persistent trace.
func newRuntimeLogger() *slog.Logger {
	level := slogutil.LevelFromString(os.Getenv("SNAPTOOL_LOG"))
	stderr := slogutil.NewHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	path := os.Getenv("SNAPTOOL_LOG_FILE")
	if path == "" {
		return slog.New(stderr)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		l := slog.New(stderr)
		l.Warn("Cannot open log file", "path", path, "error", err)
		return l
	}
	return slogutil.NewTeeLogger(stderr, slogutil.NewHandler(f, &slog.HandlerOptions{Level: level}))
}

var workspaceCache = struct {
	mu    sync.Mutex
	roots map[string]string
	cfgs  map[string]*config.ToolConfig
}{
	roots: map[string]string{},
	cfgs:  map[string]*config.ToolConfig{},
}

// workspaceRootFor walks up from dir until it finds go.mod. The
// SNAPTOOL_WORKSPACE_ROOT environment variable overrides discovery, which
// the test subcommand uses so nested modules resolve consistently.
func workspaceRootFor(dir string) string {
	if root := os.Getenv("SNAPTOOL_WORKSPACE_ROOT"); root != "" {
		return root
	}
	workspaceCache.mu.Lock()
	defer workspaceCache.mu.Unlock()
	if root, ok := workspaceCache.roots[dir]; ok {
		return root
	}
	root := dir
	for cur := dir; ; {
		if _, err := os.Stat(filepath.Join(cur, "go.mod")); err == nil {
			root = cur
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	workspaceCache.roots[dir] = root
	return root
}

func toolConfigFor(root string) *config.ToolConfig {
	workspaceCache.mu.Lock()
	defer workspaceCache.mu.Unlock()
	if cfg, ok := workspaceCache.cfgs[root]; ok {
		return cfg
	}
	cfg, err := config.Load(root)
	if err != nil {
		logger.Warn("Invalid tool config, falling back to defaults", "root", root, "error", err)
		cfg = config.Default()
	}
	workspaceCache.cfgs[root] = cfg
	return cfg
}

// referenceRecorder appends every accepted snapshot path the run touched to
// the file named by SNAPTOOL_SNAPSHOT_REFERENCES_FILE, one per line. The
// prune subcommand reads it back to find unreferenced snapshots.
var referenceRecorder = struct {
	mu   sync.Mutex
	seen map[string]bool
}{seen: map[string]bool{}}

func recordReference(snapshotPath string) {
	refFile := os.Getenv("SNAPTOOL_SNAPSHOT_REFERENCES_FILE")
	if refFile == "" {
		return
	}
	referenceRecorder.mu.Lock()
	defer referenceRecorder.mu.Unlock()
	if referenceRecorder.seen[snapshotPath] {
		return
	}
	referenceRecorder.seen[snapshotPath] = true
	f, err := os.OpenFile(refFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("Cannot record snapshot reference", "file", refFile, "error", err)
		return
	}
	defer f.Close()
	fmt.Fprintln(f, snapshotPath)
}

// resetRuntimeForTesting drops cached configuration so tests can vary the
// environment between scenarios.
func resetRuntimeForTesting() {
	workspaceCache.mu.Lock()
	workspaceCache.cfgs = map[string]*config.ToolConfig{}
	workspaceCache.mu.Unlock()
	referenceRecorder.mu.Lock()
	referenceRecorder.seen = map[string]bool{}
	referenceRecorder.mu.Unlock()
}

// assertion carries the resolved context of one snapshot assertion.
type assertion struct {
	t        TestingT
	settings Settings
	file     string
	line     uint32
	dir      string
	root     string
	cfg      *config.ToolConfig
}

func newAssertion(t TestingT, skip int) (*assertion, bool) {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		t.Fatalf("snaptool: cannot resolve assertion call site")
		return nil, false
	}
	dir := filepath.Dir(file)
	root := workspaceRootFor(dir)
	return &assertion{
		t:        t,
		settings: currentSettings(),
		file:     file,
		line:     uint32(line),
		dir:      dir,
		root:     root,
		cfg:      toolConfigFor(root),
	}, true
}

// filteredOut reports whether the configured glob filter excludes this
// snapshot name. Filtered assertions pass without comparing anything.
func (a *assertion) filteredOut(name string) bool {
	glob := a.cfg.Behavior.GlobFilter
	if glob == "" {
		return false
	}
	ok, err := path.Match(glob, name)
	if err != nil {
		logger.Warn("Invalid glob filter", "pattern", glob, "error", err)
		return false
	}
	if !ok {
		logger.Debug("Snapshot skipped by glob filter", "name", name, "pattern", glob)
	}
	return !ok
}

func (a *assertion) moduleName() string {
	return filepath.Base(a.dir)
}

func (a *assertion) resolveName(explicit string) (string, bool) {
	name := explicit
	if name == "" {
		derived, err := deriveName(a.t.Name(), a.file)
		if err != nil {
			a.t.Fatalf("snaptool: %v", err)
			return "", false
		}
		name = derived
	}
	if a.settings.SnapshotSuffix != "" {
		name += "@" + a.settings.SnapshotSuffix
	}
	return name, true
}

func (a *assertion) metadata(kind string) snapshot.Metadata {
	rel, err := filepath.Rel(a.root, a.file)
	if err != nil {
		rel = a.file
	}
	meta := snapshot.Metadata{
		SourceFile:    filepath.ToSlash(rel),
		AssertionLine: a.line,
		Description:   a.settings.Description,
		Info:          a.settings.Info,
		InputFile:     a.settings.InputFile,
		SnapshotKind:  kind,
	}
	if !a.settings.OmitExpression {
		if src, err := os.ReadFile(a.file); err == nil {
			if expr, ok := inline.ValueExprAt(src, a.file, int(a.line)); ok {
				meta.Expression = expr
			}
		}
	}
	return meta
}

func (a *assertion) comparator() Comparator {
	if a.settings.Comparator != nil {
		return a.settings.Comparator
	}
	return snapshot.DefaultComparator{}
}

func (a *assertion) printer() *output.Printer {
	return output.NewPrinter(os.Stderr, output.Mode(a.cfg.Output()))
}

func (a *assertion) rootMapping() pending.RootMapping {
	return pending.RootMapping{
		WorkspaceRoot: a.root,
		PendingRoot:   a.cfg.Behavior.PendingRoot,
	}
}

// snapshotExtension is the file extension accepted snapshots use, the first
// configured review extension.
func (a *assertion) snapshotExtension() string {
	if exts := a.cfg.Review.Extensions; len(exts) > 0 {
		return exts[0]
	}
	return "snap"
}

// inputStale reports whether the accepted snapshot predates the configured
// input file, meaning the fixture changed after the snapshot was taken.
func (a *assertion) inputStale(snapshotPath string) bool {
	if a.settings.InputFile == "" {
		return false
	}
	input := a.settings.InputFile
	if !filepath.IsAbs(input) {
		input = filepath.Join(a.dir, input)
	}
	inputInfo, err := os.Stat(input)
	if err != nil {
		return false
	}
	snapInfo, err := os.Stat(snapshotPath)
	if err != nil {
		return false
	}
	return inputInfo.ModTime().After(snapInfo.ModTime())
}

// assertFile runs the file-snapshot flow: resolve the target path, compare
// against the accepted snapshot and dispatch the configured write decision.
func (a *assertion) assertFile(explicitName string, contents snapshot.Contents, kind string) {
	a.t.Helper()

	name, ok := a.resolveName(explicitName)
	if !ok {
		return
	}
	if a.filteredOut(name) {
		return
	}

	meta := a.metadata(kind)
	if bin, isBin := contents.(snapshot.BinaryContents); isBin {
		meta.Extension = bin.Extension
	}
	got := &snapshot.Snapshot{
		ModuleName:   a.moduleName(),
		SnapshotName: name,
		Metadata:     meta,
		Contents:     contents,
	}

	snapshotDir := a.settings.SnapshotPath
	if snapshotDir == "" {
		snapshotDir = "snapshots"
	}
	target := filepath.Join(a.dir, snapshotDir, got.FileName()+"."+a.snapshotExtension())

	var ref *snapshot.Snapshot
	legacy := false
	if _, err := os.Stat(target); err == nil {
		loaded, wasLegacy, err := snapshot.Load(target)
		if err != nil {
			a.t.Fatalf("snaptool: cannot read snapshot %s: %v", target, err)
			return
		}
		ref = loaded
		legacy = wasLegacy
	}

	cmp := a.comparator()
	matched := ref != nil && !a.inputStale(target) && cmp.Matches(ref, got)
	if matched && a.cfg.Behavior.RequireFullMatch && !cmp.MatchesFully(ref, got) {
		matched = false
	}

	if matched {
		recordReference(target)
		a.removePendingFile(target)
		if a.cfg.Behavior.ForceUpdate && (legacy || !cmp.MatchesFully(ref, got)) {
			if err := got.Save(target); err != nil {
				a.t.Fatalf("snaptool: cannot rewrite snapshot %s: %v", target, err)
			}
		}
		return
	}

	unseen := ref == nil
	switch a.cfg.Decide(unseen) {
	case config.WriteInPlace:
		if err := got.Save(target); err != nil {
			a.t.Fatalf("snaptool: cannot write snapshot %s: %v", target, err)
			return
		}
		recordReference(target)
		a.removePendingFile(target)
		logger.Info("Snapshot updated", "name", name, "path", target)
	case config.WritePending:
		pendingPath, err := a.rootMapping().PendingPathFor(target + ".new")
		if err != nil {
			a.t.Fatalf("snaptool: %v", err)
			return
		}
		if err := got.SaveNew(pendingPath); err != nil {
			a.t.Fatalf("snaptool: cannot write pending snapshot %s: %v", pendingPath, err)
			return
		}
		a.printer().Mismatch(name, ref, got)
		a.fail(name, unseen)
	case config.WriteNothing:
		a.printer().Mismatch(name, ref, got)
		a.fail(name, unseen)
	}
}

// removePendingFile clears a leftover pending artifact once the assertion
// agrees with the accepted snapshot again.
func (a *assertion) removePendingFile(target string) {
	pendingPath, err := a.rootMapping().PendingPathFor(target + ".new")
	if err != nil {
		return
	}
	if err := os.Remove(pendingPath); err == nil {
		logger.Debug("Removed stale pending snapshot", "path", pendingPath)
	}
}

// inlineBatchPath is the pending-records file for inline snapshots in the
// assertion's source file, remapped into the pending root when one is set.
func (a *assertion) inlineBatchPath() (string, error) {
	colocated := filepath.Join(a.dir, "."+filepath.Base(a.file)+".pending-snap")
	return a.rootMapping().PendingPathFor(colocated)
}

// assertInline runs the inline-snapshot flow against the literal written at
// the call site.
func (a *assertion) assertInline(refLiteral string, text string) {
	a.t.Helper()

	name, ok := a.resolveName("")
	if !ok {
		return
	}
	if a.filteredOut(name) {
		return
	}

	meta := a.metadata("inline")
	makeSnap := func(kind snapshot.TextKind, body string) *snapshot.Snapshot {
		return &snapshot.Snapshot{
			ModuleName:   a.moduleName(),
			SnapshotName: name,
			Metadata:     meta,
			Contents:     snapshot.NewTextContents(kind, body),
		}
	}
	got := makeSnap(snapshot.KindInline, text)
	ref := makeSnap(snapshot.KindInline, refLiteral)
	if !snapshot.CanonicalInlineLayout(refLiteral) {
		logger.Warn("Inline snapshot literal should begin and end with a newline",
			"name", name, "file", a.file, "line", a.line)
	}

	batchPath, err := a.inlineBatchPath()
	if err != nil {
		a.t.Fatalf("snaptool: %v", err)
		return
	}

	cmp := a.comparator()
	matched := cmp.Matches(ref, got)
	if matched && a.cfg.Behavior.RequireFullMatch && !cmp.MatchesFully(ref, got) {
		matched = false
	}

	if matched {
		if a.cfg.Behavior.ForceUpdate {
			a.renormalizeInline(name, got)
		}
		// A passed marker retires any stale pending record for this
		// line. Only an existing batch gets one, so clean trees stay
		// clean.
		if _, err := os.Stat(batchPath); err == nil {
			marker := &snapshot.PendingInline{RunID: runID, Line: a.line}
			if err := marker.Append(batchPath); err != nil {
				logger.Warn("Cannot record passed marker", "path", batchPath, "error", err)
			}
		}
		return
	}

	unseen := strings.TrimSpace(refLiteral) == ""
	switch a.cfg.Decide(unseen) {
	case config.WriteInPlace:
		gotText, _ := got.Text()
		update := inline.Update{Line: a.line, Contents: gotText}
		missed, err := inline.RewriteFile(a.file, []inline.Update{update})
		if err != nil {
			a.t.Fatalf("snaptool: cannot update inline snapshot in %s: %v", a.file, err)
			return
		}
		if len(missed) > 0 {
			a.t.Fatalf("snaptool: %v", missed[0])
			return
		}
		logger.Info("Inline snapshot updated", "name", name, "file", a.file, "line", a.line)
	case config.WritePending:
		rec := &snapshot.PendingInline{RunID: runID, Line: a.line, New: got}
		if !unseen {
			rec.Old = ref
		}
		if err := rec.Append(batchPath); err != nil {
			a.t.Fatalf("snaptool: cannot record pending inline snapshot: %v", err)
			return
		}
		a.printer().Mismatch(name, refForPrint(ref, unseen), got)
		a.fail(name, unseen)
	case config.WriteNothing:
		a.printer().Mismatch(name, refForPrint(ref, unseen), got)
		a.fail(name, unseen)
	}
}

// renormalizeInline rewrites a matching inline literal in force-update
// mode, so an old-style or hand-indented literal is brought to the layout
// the rewriter emits. A literal already in that layout is left untouched.
func (a *assertion) renormalizeInline(name string, got *snapshot.Snapshot) {
	gotText, _ := got.Text()
	missed, err := inline.RewriteFile(a.file, []inline.Update{{Line: a.line, Contents: gotText}})
	if err != nil {
		logger.Warn("Cannot re-normalize inline snapshot",
			"name", name, "file", a.file, "line", a.line, "error", err)
		return
	}
	if len(missed) > 0 {
		logger.Warn("Cannot re-normalize inline snapshot",
			"name", name, "file", a.file, "line", a.line, "error", missed[0])
	}
}

func refForPrint(ref *snapshot.Snapshot, unseen bool) *snapshot.Snapshot {
	if unseen {
		return nil
	}
	return ref
}

func (a *assertion) fail(name string, unseen bool) {
	if a.cfg.Behavior.ForcePass {
		logger.Info("Snapshot mismatch suppressed by force-pass", "name", name)
		return
	}
	if unseen {
		a.t.Errorf("snapshot %q is new; run the review to accept it", name)
		return
	}
	a.t.Errorf("snapshot %q does not match the accepted value", name)
}
