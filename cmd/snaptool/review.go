package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"snaptool/internal/output"
	"snaptool/internal/pending"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively review pending snapshots",
	Long: `Review walks all pending snapshots and, one by one, shows the change as a
diff and asks whether to accept, reject or skip it. Skipped snapshots stay
pending for a later pass.`,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
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

	total := 0
	for _, c := range containers {
		total += c.Len()
	}

	reader := bufio.NewReader(os.Stdin)
	reviewed := 0
	quit := false
	for _, c := range containers {
		for _, item := range c.Items() {
			reviewed++
			if quit {
				item.Op = pending.OpSkip
				continue
			}
			presentItem(c, item, reviewed, total)
			op, stop := promptDecision(reader)
			item.Op = op
			if stop {
				quit = true
			}
		}
	}

	var t tally
	err = commitAll(containers, &t, logger)
	t.print()
	return err
}

func presentItem(c *pending.Container, item *pending.Item, index, total int) {
	fmt.Printf("\n[%d/%d] %s", index, total, c.TargetPath())
	if item.Line > 0 {
		fmt.Printf(":%d", item.Line)
	}
	fmt.Println()

	var oldText, newText string
	if item.Old != nil {
		oldText, _ = item.Old.Text()
	}
	if item.New != nil {
		newText, _ = item.New.Text()
	}
	fmt.Println(output.RenderDiff(oldText, newText))
}

// promptDecision reads one review decision. Returns the op and whether the
// user asked to stop reviewing (remaining items are skipped).
func promptDecision(reader *bufio.Reader) (pending.Op, bool) {
	for {
		fmt.Print("  [a]ccept, [r]eject, [s]kip, [q]uit? ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return pending.OpSkip, true
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "a", "accept":
			return pending.OpAccept, false
		case "r", "reject":
			return pending.OpReject, false
		case "s", "skip", "":
			return pending.OpSkip, false
		case "q", "quit":
			return pending.OpSkip, true
		}
	}
}
