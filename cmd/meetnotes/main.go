package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/cli"
	"github.com/dgnsrekt/meetnotes/internal/config"
	"github.com/dgnsrekt/meetnotes/internal/notesapi"
	"github.com/dgnsrekt/meetnotes/internal/output"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogger(cfg.LogLevel)

	deps := &cli.Dependencies{
		Config: cfg,
		Notes:  notesapi.NewClient(cfg.BackendURL, &http.Client{Timeout: 10 * time.Minute}),
		Daemon: cli.NewDaemonClient(cfg.DaemonURL, &http.Client{Timeout: 30 * time.Second}),
	}

	return cli.NewRootCmd(deps).Execute()
}

func setupLogger(level string) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
}
