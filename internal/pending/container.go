// Package pending manages the lifecycle of pending snapshot artifacts: the
// `.new` files shadowing accepted file snapshots and the dotfile batches
// holding pending inline updates, through review (accept, reject, skip) to
// commit.
package pending

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"snaptool/internal/inline"
	"snaptool/internal/snapshot"
	"snaptool/internal/walk"
)

// Op is the review decision for one pending snapshot.
type Op uint8

const (
	// OpSkip leaves the pending artifact in place.
	OpSkip Op = iota
	// OpAccept promotes pending to accepted.
	OpAccept
	// OpReject discards the pending artifact.
	OpReject
)

// Item is one reviewable pending snapshot with its decision.
type Item struct {
	// Line is the call-site line for inline snapshots, zero for files.
	Line uint32
	// New is the candidate; Old is the accepted state, when one exists.
	New *snapshot.Snapshot
	Old *snapshot.Snapshot
	Op  Op

	runID string
}

type containerKind uint8

const (
	fileContainer containerKind = iota
	inlineContainer
)

// Container is all pending state behind one artifact file: exactly one item
// for a `.new` file, one per call site for an inline batch.
type Container struct {
	kind        containerKind
	pendingPath string
	targetPath  string
	items       []*Item
	logger      *slog.Logger
}

// Load reads a pending artifact into a reviewable container. The artifact
// must be walk.PendingFile or walk.PendingInlineBatch.
func Load(artifact walk.Artifact, roots RootMapping, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	target, err := roots.TargetPathFor(artifact.Path)
	if err != nil {
		return nil, err
	}
	switch artifact.Kind {
	case walk.PendingFile:
		return loadFileContainer(artifact.Path, target, logger)
	case walk.PendingInlineBatch:
		return loadInlineContainer(artifact.Path, target, logger)
	}
	return nil, fmt.Errorf("artifact %s is not a pending artifact", artifact.Path)
}

func loadFileContainer(pendingPath, target string, logger *slog.Logger) (*Container, error) {
	candidate, _, err := snapshot.Load(pendingPath)
	if err != nil {
		return nil, err
	}
	item := &Item{New: candidate}
	if accepted, legacy, err := snapshot.Load(target); err == nil {
		if legacy {
			logger.Warn("accepted snapshot uses the deprecated header format", "path", target)
		}
		item.Old = accepted
	}
	return &Container{
		kind:        fileContainer,
		pendingPath: pendingPath,
		targetPath:  target,
		items:       []*Item{item},
		logger:      logger,
	}, nil
}

func loadInlineContainer(pendingPath, target string, logger *slog.Logger) (*Container, error) {
	records, err := snapshot.LoadBatch(pendingPath)
	if err != nil {
		return nil, err
	}
	items := make([]*Item, 0, len(records))
	for _, rec := range records {
		items = append(items, &Item{Line: rec.Line, New: rec.New, Old: rec.Old, runID: rec.RunID})
	}
	return &Container{
		kind:        inlineContainer,
		pendingPath: pendingPath,
		targetPath:  target,
		items:       items,
		logger:      logger,
	}, nil
}

// Items returns the reviewable entries; review sets each Item.Op in place.
func (c *Container) Items() []*Item { return c.items }

// TargetPath is the accepted snapshot file or the test source file the
// container commits into.
func (c *Container) TargetPath() string { return c.targetPath }

// Len reports the number of pending snapshots in the container.
func (c *Container) Len() int { return len(c.items) }

// SetAll applies one decision to every item.
func (c *Container) SetAll(op Op) {
	for _, item := range c.items {
		item.Op = op
	}
}

// Commit executes the recorded decisions. Accepted file snapshots are
// re-serialized at the target (dropping run-scoped metadata) and the `.new`
// file removed; accepted inline updates are spliced into the source file.
// Skipped items keep their pending artifact.
func (c *Container) Commit() error {
	if c.kind == fileContainer {
		return c.commitFile()
	}
	return c.commitInline()
}

func (c *Container) commitFile() error {
	item := c.items[0]
	switch item.Op {
	case OpSkip:
		return nil
	case OpReject:
		return os.Remove(c.pendingPath)
	}
	if err := item.New.Save(c.targetPath); err != nil {
		return err
	}
	return os.Remove(c.pendingPath)
}

func (c *Container) commitInline() error {
	var updates []inline.Update
	var kept []*snapshot.PendingInline
	for _, item := range c.items {
		switch item.Op {
		case OpAccept:
			text, ok := item.New.Text()
			if !ok {
				return fmt.Errorf("inline snapshot at %s:%d has no text contents", c.targetPath, item.Line)
			}
			updates = append(updates, inline.Update{Line: item.Line, Contents: text})
		case OpSkip:
			kept = append(kept, &snapshot.PendingInline{
				RunID: item.runID, Line: item.Line, New: item.New, Old: item.Old,
			})
		}
	}
	if len(updates) > 0 {
		missed, err := inline.RewriteFile(c.targetPath, updates)
		if err != nil {
			return err
		}
		for _, m := range missed {
			c.logger.Warn("inline snapshot target moved, dropping pending update",
				"path", m.Path, "line", m.Line)
		}
	}
	return snapshot.SaveBatch(c.pendingPath, kept)
}

// DeleteUnreferenced removes accepted snapshot files under root that the
// given reference set does not name, returning the deleted paths. Paths in
// the set are absolute.
func DeleteUnreferenced(root string, referenced map[string]bool, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	artifacts, err := walk.Find(root, walk.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, a := range artifacts {
		if a.Kind != walk.Accepted {
			continue
		}
		abs, err := filepath.Abs(a.Path)
		if err != nil {
			return nil, err
		}
		if referenced[abs] {
			continue
		}
		if err := os.Remove(a.Path); err != nil {
			return nil, err
		}
		logger.Info("deleted unreferenced snapshot", "path", a.Path)
		deleted = append(deleted, a.Path)
	}
	return deleted, nil
}
