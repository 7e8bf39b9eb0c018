package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DevRickLin/adaptive-slowmode/internal/mcp"
	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
)

// This MCP server relays slowmode administration tools to the daemon's admin API.

const defaultAPIURL = "http://127.0.0.1:9877"

func main() {
	godotenv.Load()

	// stdout carries the MCP stream
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	apiURL := os.Getenv("SLOWMODE_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(mcp.NewClient(apiURL), versioninfo.Short())
	if err := mcp.Run(ctx, server); err != nil && ctx.Err() == nil {
		logger.Error("mcp server stopped", "api", apiURL, "err", err)
		os.Exit(1)
	}
}
