package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"snaptool/internal/config"
	"snaptool/internal/slogutil"
	"snaptool/internal/version"

	"github.com/spf13/cobra"
)

var (
	// workspaceFlag is the CLI --workspace-root flag value
	workspaceFlag string
	// verbosityFlag counts -v occurrences
	verbosityFlag int
	quietFlag     bool

	includeHiddenFlag bool
	extensionsFlag    []string
	pendingRootFlag   string
	logFileFlag       string
)

var rootCmd = &cobra.Command{
	Use:   "snaptool",
	Short: "snaptool - snapshot test review tooling",
	Long: `snaptool manages the snapshot files produced by snapshot assertions in Go
tests: it runs the test suite, shows pending snapshot changes as diffs, and
accepts or rejects them, including inline snapshots embedded in test sources.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("snaptool version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace-root", "",
		"Workspace root (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosityFlag, "verbose", "v", "Increase log verbosity")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().BoolVar(&includeHiddenFlag, "include-hidden", false,
		"Search hidden directories for snapshots")
	rootCmd.PersistentFlags().StringSliceVar(&extensionsFlag, "extensions", nil,
		"Snapshot file extensions to consider (default: snap)")
	rootCmd.PersistentFlags().StringVar(&pendingRootFlag, "pending-root", "",
		"Directory pending artifacts were written to, when not co-located")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "",
		"Also write log output to this file")
}

func newLogger() *slog.Logger {
	level := slogutil.LevelFromVerbosity(verbosityFlag, quietFlag)
	if logFileFlag == "" {
		return slogutil.NewLogger(os.Stderr, level)
	}
	if quietFlag {
		// Quiet silences the terminal but a requested log file still
		// gets everything above the quiet threshold.
		fileLogger, _, err := slogutil.NewFileLogger(logFileFlag, level)
		if err == nil {
			return fileLogger
		}
		return slogutil.NewLogger(os.Stderr, level)
	}
	f, err := os.OpenFile(logFileFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger := slogutil.NewLogger(os.Stderr, level)
		logger.Warn("Cannot open log file", "path", logFileFlag, "error", err)
		return logger
	}
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogutil.NewTeeHandler(
		slogutil.NewHandler(os.Stderr, opts),
		slogutil.NewHandler(f, opts),
	))
}

// resolveWorkspaceRoot determines the workspace root from the CLI flag or
// the current directory, as an absolute path.
func resolveWorkspaceRoot() (string, error) {
	root := workspaceFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	return filepath.Abs(root)
}

// loadToolConfig loads the workspace configuration and applies CLI flag
// overrides. Precedence: CLI flag > environment > config file.
func loadToolConfig(root string, logger *slog.Logger) *config.ToolConfig {
	cfg, err := config.Load(root)
	if err != nil {
		logger.Warn("Invalid tool config, falling back to defaults", "root", root, "error", err)
		cfg = config.Default()
	}
	if includeHiddenFlag {
		cfg.Review.IncludeHidden = true
	}
	if len(extensionsFlag) > 0 {
		cfg.Review.Extensions = extensionsFlag
	}
	if pendingRootFlag != "" {
		cfg.Behavior.PendingRoot = pendingRootFlag
	}
	return cfg
}
