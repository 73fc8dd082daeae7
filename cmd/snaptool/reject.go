package main

import (
	"snaptool/internal/pending"

	"github.com/spf13/cobra"
)

var rejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject all pending snapshots",
	Long: `Reject discards every pending snapshot artifact without touching the
accepted snapshots or test sources.`,
	RunE: runReject,
}

func init() {
	rootCmd.AddCommand(rejectCmd)
}

func runReject(cmd *cobra.Command, args []string) error {
	return runBulk(pending.OpReject)
}
