package main

import (
	"log/slog"
	"os"

	"github.com/sunwardhq/sunward/internal/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		slog.Error("sunward failed", "err", err)
		os.Exit(1)
	}
}
