// File path: cmd/insight/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nicodishanthj/Katral_insight/internal/app"
	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/mcpserver"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	seed := flag.Bool("seed", false, "populate an empty warehouse with demo data")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio instead of HTTP")
	knowledgeFile := flag.String("knowledge", "", "path to a knowledge base YAML file (defaults to the embedded copy)")
	autoStartDefault := true
	if env := strings.TrimSpace(os.Getenv("INSIGHT_AUTOSTART")); env != "" {
		if parsed, err := strconv.ParseBool(env); err == nil {
			autoStartDefault = parsed
		}
	}
	autoStart := flag.Bool("auto-start-chroma", autoStartDefault, "launch CHROMA_COMMAND before serving when it is set")
	flag.Parse()

	if *mcpMode {
		// stdout carries protocol frames.
		common.SetLogOutput(os.Stderr)
	}
	logger := common.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.Warn("insight: .env file not loaded", "error", err)
	} else {
		logger.Info("insight: environment loaded from .env")
	}

	if *autoStart {
		chroma, err := startChroma(ctx, logger)
		if err != nil {
			exit(logger, "chroma startup", err)
		}
		if chroma != nil {
			defer stopManagedService(context.Background(), chroma, logger)
		}
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		exit(logger, "config load", err)
	}
	if *seed {
		cfg.Seed = true
	}
	if trimmed := strings.TrimSpace(*knowledgeFile); trimmed != "" {
		cfg.KnowledgeFile = trimmed
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		exit(logger, "initialization", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("insight: shutdown returned error", "error", err)
		}
	}()

	if *mcpMode {
		srv, err := application.MCPServer()
		if err != nil {
			exit(logger, "mcp server construction", err)
		}
		logger.Info("insight: serving mcp over stdio")
		if err := mcpserver.ServeStdio(srv); err != nil {
			logger.Error("insight: mcp server stopped", "error", err)
		}
		return
	}

	handler, err := application.APIServer()
	if err != nil {
		exit(logger, "server construction", err)
	}
	server := &http.Server{Addr: *addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("insight: graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("insight: server listening", "addr", *addr, "api", "/api/v1", "health", "/healthz")
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("insight: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/api/v1/health", reachable))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("insight: server stopped", "error", err)
	}
}

func exit(logger *slog.Logger, stage string, err error) {
	logger.Error("insight: "+stage+" failed", "error", err)
	fmt.Fprintf(os.Stderr, "%s error: %v\n", stage, err)
	os.Exit(1)
}
