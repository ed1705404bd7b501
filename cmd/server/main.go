package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"aistudio-bridge/internal/browser"
	"aistudio-bridge/internal/catalog"
	"aistudio-bridge/internal/config"
	"aistudio-bridge/internal/journal"
	mcpserver "aistudio-bridge/internal/mcp"
	"aistudio-bridge/internal/params"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the bridge config file")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Redirect logging to file for stdio mode (stderr interferes with MCP protocol)
	if cfg.MCP.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			log.SetOutput(io.Discard)
		}
	}
	if *ssePort != 0 {
		cfg.MCP.SSEPort = *ssePort
	}

	jrnl, err := journal.New(cfg.Journal)
	if err != nil {
		log.Fatalf("failed to initialize fact journal: %v", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("failed to load model catalog: %v", err)
	}
	log.Printf("model catalog loaded with %d entries", cat.Len())

	cache := params.NewSurfaceSession()

	sessionManager := browser.NewSessionManager(cfg.Browser, jrnl)
	sessionManager.OnNavigation(cache)
	if cfg.Browser.AutoStart {
		if err := sessionManager.Start(ctx); err != nil {
			log.Fatalf("failed to initialize browser session: %v", err)
		}
	} else {
		log.Printf("browser auto-start disabled; use the launch_browser tool later")
	}

	snaps, err := browser.NewSnapshotWriter(cfg.Snapshots, sessionManager.Page)
	if err != nil {
		log.Fatalf("failed to initialize snapshot writer: %v", err)
	}

	server, err := mcpserver.NewServer(cfg, sessionManager, cache, jrnl, cat, snaps)
	if err != nil {
		log.Fatalf("failed to initialize MCP server: %v", err)
	}

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting AI Studio bridge SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting AI Studio bridge stdio server")
		startErr = server.Start(ctx)
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Fatalf("server exited with error: %v", startErr)
	}
}
