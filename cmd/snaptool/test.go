package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"snaptool/internal/pending"

	"github.com/spf13/cobra"
)

var (
	testAccept       bool
	testAcceptUnseen bool
	testReview       bool
	testKeepPending  bool
	testForceUpdate  bool
	testUpdateMode   string
	testDeleteUnref  bool
)

var testCmd = &cobra.Command{
	Use:   "test [packages]",
	Short: "Run the test suite and process pending snapshots",
	Long: `Test runs go test for the workspace with the snapshot environment set up,
then processes the pending snapshots the run produced. By default pending
snapshots are left for a later review; --accept, --accept-unseen and
--review handle them right away.`,
	RunE: runTest,
}

func init() {
	testCmd.Flags().BoolVar(&testAccept, "accept", false, "Accept all pending snapshots after the run")
	testCmd.Flags().BoolVar(&testAcceptUnseen, "accept-unseen", false, "Accept only snapshots without an accepted counterpart")
	testCmd.Flags().BoolVar(&testReview, "review", false, "Review pending snapshots interactively after the run")
	testCmd.Flags().BoolVar(&testKeepPending, "keep-pending", false, "Leave pending snapshots untouched")
	testCmd.Flags().BoolVar(&testForceUpdate, "force-update-snapshots", false, "Rewrite accepted snapshots even when they match")
	testCmd.Flags().StringVar(&testUpdateMode, "update", "", "Update behavior for the run: auto, always, unseen, new or no")
	testCmd.Flags().BoolVar(&testDeleteUnref, "delete-unreferenced-snapshots", false, "Delete accepted snapshots no assertion referenced")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	root, err := resolveWorkspaceRoot()
	if err != nil {
		return err
	}
	cfg := loadToolConfig(root, logger)

	env := append(os.Environ(), "SNAPTOOL_WORKSPACE_ROOT="+root)
	if testUpdateMode != "" {
		env = append(env, "SNAPTOOL_UPDATE="+testUpdateMode)
	} else {
		// Snapshot mismatches become pending artifacts instead of
		// in-place updates, so the flags below decide what sticks.
		env = append(env, "SNAPTOOL_UPDATE=new")
	}
	if testForceUpdate {
		env = append(env, "SNAPTOOL_FORCE_UPDATE_SNAPSHOTS=1")
	}
	if cfg.Behavior.PendingRoot != "" {
		env = append(env, "SNAPTOOL_PENDING_ROOT="+cfg.Behavior.PendingRoot)
	}

	var refsFile string
	if testDeleteUnref {
		f, err := os.CreateTemp("", "snaptool-refs-*")
		if err != nil {
			return fmt.Errorf("failed to create references file: %w", err)
		}
		refsFile = f.Name()
		f.Close()
		defer os.Remove(refsFile)
		env = append(env, "SNAPTOOL_SNAPSHOT_REFERENCES_FILE="+refsFile)
	}

	testArgs := []string{"test"}
	testArgs = append(testArgs, cfg.Test.Args...)
	if len(args) > 0 {
		testArgs = append(testArgs, args...)
	} else {
		testArgs = append(testArgs, "./...")
	}

	goTest := exec.Command("go", testArgs...)
	goTest.Dir = root
	goTest.Env = env
	goTest.Stdout = os.Stdout
	goTest.Stderr = os.Stderr
	testErr := goTest.Run()

	switch {
	case testKeepPending:
	case testReview:
		if err := runReview(cmd, nil); err != nil {
			return err
		}
	case testAccept:
		if err := runBulk(pending.OpAccept); err != nil {
			return err
		}
	case testAcceptUnseen:
		if err := acceptUnseen(root); err != nil {
			return err
		}
	}

	if testDeleteUnref {
		if err := pruneUnreferenced(root, refsFile); err != nil {
			return err
		}
	}

	if testErr != nil && !testAccept && !testAcceptUnseen {
		return fmt.Errorf("test run failed: %w", testErr)
	}
	return nil
}

// acceptUnseen accepts pending snapshots that have no accepted counterpart
// and skips the rest.
func acceptUnseen(root string) error {
	log := newLogger()
	cfg := loadToolConfig(root, log)
	containers, err := findContainers(root, cfg, log)
	if err != nil {
		return err
	}
	for _, c := range containers {
		for _, item := range c.Items() {
			if item.Old == nil {
				item.Op = pending.OpAccept
			} else {
				item.Op = pending.OpSkip
			}
		}
	}
	var t tally
	err = commitAll(containers, &t, log)
	t.print()
	return err
}

// pruneUnreferenced deletes accepted snapshots the finished test run never
// touched, as recorded in the references file.
func pruneUnreferenced(root, refsFile string) error {
	log := newLogger()
	referenced, err := readReferences(refsFile)
	if err != nil {
		return err
	}
	deleted, err := pending.DeleteUnreferenced(root, referenced, log)
	if err != nil {
		return err
	}
	for _, p := range deleted {
		fmt.Printf("deleted %s\n", p)
	}
	return nil
}

func readReferences(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read references file: %w", err)
	}
	defer f.Close()

	referenced := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		referenced[filepath.Clean(line)] = true
	}
	return referenced, scanner.Err()
}
