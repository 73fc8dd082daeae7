package pending

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RootMapping translates a pending artifact path back to the accepted target
// it shadows. When pending artifacts are written under a separate pending
// root (keeping the source tree read-only), every pending path is the
// relative-path-preserving image of the co-located default; mapping back is
// a prefix substitution plus suffix stripping.
type RootMapping struct {
	// WorkspaceRoot is where accepted snapshots and sources live.
	WorkspaceRoot string
	// PendingRoot is where pending artifacts are written. Empty means
	// co-located with the accepted files.
	PendingRoot string
}

// MappingError reports a pending path that does not lie under the pending
// root and therefore has no accepted counterpart.
type MappingError struct {
	Path string
	Root string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("pending path %s is not under pending root %s", e.Path, e.Root)
}

// Remapped reports whether pending artifacts live outside the workspace.
func (m RootMapping) Remapped() bool {
	return m.PendingRoot != "" && m.PendingRoot != m.WorkspaceRoot
}

// PendingPathFor returns where the pending artifact for a co-located pending
// path belongs under the mapping.
func (m RootMapping) PendingPathFor(colocated string) (string, error) {
	if !m.Remapped() {
		return colocated, nil
	}
	rel, err := filepath.Rel(m.WorkspaceRoot, colocated)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", &MappingError{Path: colocated, Root: m.WorkspaceRoot}
	}
	return filepath.Join(m.PendingRoot, rel), nil
}

// TargetPathFor maps a pending artifact path to the accepted file (for
// `.new` pending snapshots) or the source file (for inline batches).
func (m RootMapping) TargetPathFor(pendingPath string) (string, error) {
	mapped := pendingPath
	if m.Remapped() {
		rel, err := filepath.Rel(m.PendingRoot, pendingPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", &MappingError{Path: pendingPath, Root: m.PendingRoot}
		}
		mapped = filepath.Join(m.WorkspaceRoot, rel)
	}
	dir, base := filepath.Dir(mapped), filepath.Base(mapped)
	switch {
	case strings.HasSuffix(base, ".new"):
		return filepath.Join(dir, strings.TrimSuffix(base, ".new")), nil
	case strings.HasPrefix(base, ".") && strings.HasSuffix(base, ".pending-snap"):
		return filepath.Join(dir, strings.TrimSuffix(base[1:], ".pending-snap")), nil
	}
	return "", &MappingError{Path: pendingPath, Root: m.PendingRoot}
}
