package main

import (
	"errors"
	"fmt"
	"log/slog"

	"snaptool/internal/config"
	"snaptool/internal/pending"
	"snaptool/internal/walk"
)

// findContainers discovers the pending artifacts under the workspace (or
// the remapped pending root) and loads them into review containers.
// Unloadable or unmappable artifacts are skipped with a warning so one bad
// file never blocks the rest of the batch.
func findContainers(root string, cfg *config.ToolConfig, logger *slog.Logger) ([]*pending.Container, error) {
	mapping := pending.RootMapping{
		WorkspaceRoot: root,
		PendingRoot:   cfg.Behavior.PendingRoot,
	}
	searchRoot := root
	if mapping.Remapped() {
		searchRoot = cfg.Behavior.PendingRoot
	}

	artifacts, err := walk.Find(searchRoot, walk.Options{
		Extensions:     cfg.Review.Extensions,
		IncludeHidden:  cfg.Review.IncludeHidden,
		IncludeIgnored: cfg.Review.IncludeIgnored,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate pending snapshots: %w", err)
	}

	var containers []*pending.Container
	for _, art := range artifacts {
		if art.Kind == walk.Accepted {
			continue
		}
		c, err := pending.Load(art, mapping, logger)
		if err != nil {
			var mapErr *pending.MappingError
			if errors.As(err, &mapErr) {
				logger.Warn("Pending snapshot outside workspace, skipping", "path", art.Path)
			} else {
				logger.Warn("Cannot load pending snapshot, skipping", "path", art.Path, "error", err)
			}
			continue
		}
		if c.Len() == 0 {
			continue
		}
		containers = append(containers, c)
	}
	return containers, nil
}

// tally accumulates per-item review outcomes.
type tally struct {
	accepted []string
	rejected []string
	skipped  []string
}

func (t *tally) record(target string, op pending.Op) {
	switch op {
	case pending.OpAccept:
		t.accepted = append(t.accepted, target)
	case pending.OpReject:
		t.rejected = append(t.rejected, target)
	default:
		t.skipped = append(t.skipped, target)
	}
}

func (t *tally) print() {
	fmt.Printf("accepted: %d, rejected: %d, skipped: %d\n",
		len(t.accepted), len(t.rejected), len(t.skipped))
	for _, p := range t.accepted {
		fmt.Printf("  accepted %s\n", p)
	}
	for _, p := range t.rejected {
		fmt.Printf("  rejected %s\n", p)
	}
	for _, p := range t.skipped {
		fmt.Printf("  skipped  %s\n", p)
	}
}

// commitAll commits every container, continuing past individual failures
// and reporting the first error at the end.
func commitAll(containers []*pending.Container, t *tally, logger *slog.Logger) error {
	var firstErr error
	for _, c := range containers {
		if err := c.Commit(); err != nil {
			logger.Error("Failed to apply review decision", "target", c.TargetPath(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, item := range c.Items() {
			t.record(c.TargetPath(), item.Op)
		}
	}
	return firstErr
}
