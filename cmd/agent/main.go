package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/xenocryst1/collectsphere/internal/agent"
	"github.com/xenocryst1/collectsphere/internal/config"
)

func main() {
	// Endpoint parsing wants a logger for warnings about unknown keys,
	// so config loads against a plain text logger and the configured
	// handler is installed afterwards.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(bootLogger)
	if err != nil {
		bootLogger.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := agent.BuildLogger(cfg)
	a, err := agent.New(cfg, logger)
	if err != nil {
		logger.Error("agent initialization failed", "error", err)
		os.Exit(1)
	}

	if err := a.Run(context.Background()); err != nil {
		logger.Error("agent runtime failed", "error", err)
		os.Exit(1)
	}
}
