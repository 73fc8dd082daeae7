package main

import (
	"fmt"

	"snaptool/internal/pending"

	"github.com/spf13/cobra"
)

var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept all pending snapshots",
	Long: `Accept promotes every pending snapshot: pending file snapshots replace
their accepted counterparts, and pending inline snapshots are written back
into the test sources.`,
	RunE: runAccept,
}

func init() {
	rootCmd.AddCommand(acceptCmd)
}

func runAccept(cmd *cobra.Command, args []string) error {
	return runBulk(pending.OpAccept)
}

// runBulk applies one decision to every pending item.
func runBulk(op pending.Op) error {
	logger := newLogger()
	root, err := resolveWorkspaceRoot()
	if err != nil {
		return err
	}
	cfg := loadToolConfig(root, logger)

	containers, err := findContainers(root, cfg, logger)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		fmt.Println("no pending snapshots")
		return nil
	}

	for _, c := range containers {
		c.SetAll(op)
	}
	var t tally
	err = commitAll(containers, &t, logger)
	t.print()
	return err
}
