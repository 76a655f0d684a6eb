// File path: cmd/insight/services.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/common/process"
	"github.com/nicodishanthj/Katral_insight/internal/vector"
)

// startChroma launches CHROMA_COMMAND and points the vector client at it.
// It returns nil when no command is configured.
func startChroma(ctx context.Context, logger *slog.Logger) (*process.ManagedService, error) {
	line := strings.TrimSpace(os.Getenv("CHROMA_COMMAND"))
	if line == "" {
		logger.Info("insight: CHROMA_COMMAND not set, chromadb not managed")
		return nil, nil
	}
	command, args, err := process.ParseCommand(line)
	if err != nil {
		return nil, err
	}
	binary, err := process.BinaryPath(command)
	if err != nil {
		return nil, err
	}
	for key, value := range map[string]string{
		"CHROMADB_ENABLED": "true",
		"CHROMADB_HOST":    "127.0.0.1",
		"CHROMADB_PORT":    "8000",
		"CHROMADB_SCHEME":  "http",
	} {
		if err := ensureEnvDefault(key, value); err != nil {
			return nil, err
		}
	}
	cfg, err := vector.LoadConfig()
	if err != nil {
		return nil, err
	}
	return process.Start(ctx, process.ServiceConfig{
		Name:         "chromadb",
		Command:      binary,
		Args:         args,
		Env:          []string{"PYTHONUNBUFFERED=1"},
		ReadyURL:     cfg.BaseURL() + "/heartbeat",
		ReadyTimeout: 2 * time.Minute,
		StopTimeout:  5 * time.Second,
		Logger:       logger,
	})
}

func stopManagedService(ctx context.Context, svc *process.ManagedService, logger *slog.Logger) {
	if err := svc.Stop(ctx); err != nil {
		logger.Warn("launcher: service shutdown returned error", "error", err)
	}
}

func ensureEnvDefault(key, value string) error {
	if _, ok := os.LookupEnv(key); ok {
		return nil
	}
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
