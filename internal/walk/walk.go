// Package walk enumerates snapshot artifacts under a workspace root:
// accepted snapshot files, pending `.new` files, and pending inline batch
// dotfiles.
package walk

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactKind classifies a discovered file.
type ArtifactKind uint8

const (
	// Accepted is a committed snapshot file (`<name>.<ext>`).
	Accepted ArtifactKind = iota
	// PendingFile is a pending file snapshot (`<name>.<ext>.new`).
	PendingFile
	// PendingInlineBatch is a pending inline record file
	// (`.<name>.pending-snap`).
	PendingInlineBatch
)

// Artifact is one discovered snapshot-related file.
type Artifact struct {
	Path string
	Kind ArtifactKind
}

// Options control traversal.
type Options struct {
	// Extensions are accepted snapshot extensions without the dot,
	// defaulting to "snap".
	Extensions []string
	// IncludeHidden visits hidden directories and files. Pending inline
	// dotfiles surface regardless.
	IncludeHidden bool
	// IncludeIgnored visits paths matched by the workspace root's
	// .gitignore instead of skipping them.
	IncludeIgnored bool
	Logger         *slog.Logger
}

// alwaysSkipped are build-output and cache directories never worth
// descending into.
var alwaysSkipped = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	"target":       true,
}

// Find walks root and returns every snapshot artifact, in path order.
// Traversal stops at nested directories carrying their own go.mod, so a
// shared subtree rooted in another module is never double-counted.
func Find(root string, opts Options) ([]Artifact, error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{"snap"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var ignore *ignoreRules
	if !opts.IncludeIgnored {
		ignore = loadIgnoreRules(root)
	}
	var artifacts []Artifact
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			opts.Logger.Debug("skipping unreadable entry", "path", path, "error", walkErr)
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if alwaysSkipped[name] {
				return filepath.SkipDir
			}
			if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if ignore.Ignored(relPath(root, path), true) {
				return filepath.SkipDir
			}
			if nestedModuleRoot(path) {
				return filepath.SkipDir
			}
			return nil
		}
		kind, ok := classify(name, opts.Extensions)
		if !ok {
			return nil
		}
		// hidden files stay invisible except the pending dotfiles themselves
		if !opts.IncludeHidden && strings.HasPrefix(name, ".") && kind != PendingInlineBatch {
			return nil
		}
		if ignore.Ignored(relPath(root, path), false) {
			return nil
		}
		artifacts = append(artifacts, Artifact{Path: path, Kind: kind})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func nestedModuleRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "go.mod"))
	return err == nil
}

func classify(name string, extensions []string) (ArtifactKind, bool) {
	if strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".pending-snap") {
		return PendingInlineBatch, true
	}
	for _, ext := range extensions {
		switch {
		case strings.HasSuffix(name, "."+ext+".new"):
			return PendingFile, true
		case strings.HasSuffix(name, "."+ext):
			return Accepted, true
		}
	}
	return 0, false
}
