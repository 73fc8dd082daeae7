package main

import (
	"log/slog"
	"os"

	"snaptool/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := slogutil.NewLogger(os.Stderr, slog.LevelError)
		logger.Error("Command execution failed", "error", err.Error())
		os.Exit(1)
	}
}
