package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/api"
	"github.com/dgnsrekt/meetnotes/internal/artifacts"
	"github.com/dgnsrekt/meetnotes/internal/browser"
	"github.com/dgnsrekt/meetnotes/internal/capture"
	"github.com/dgnsrekt/meetnotes/internal/config"
	"github.com/dgnsrekt/meetnotes/internal/controller"
	"github.com/dgnsrekt/meetnotes/internal/events"
	"github.com/dgnsrekt/meetnotes/internal/journal"
	"github.com/dgnsrekt/meetnotes/internal/netutil"
	"github.com/dgnsrekt/meetnotes/internal/notesapi"
	"github.com/dgnsrekt/meetnotes/internal/notify"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
	"github.com/dgnsrekt/meetnotes/internal/watcher"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	cdpReconnectDelay = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load recorder config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("recorderd config loaded",
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"backend_url", cfg.BackendURL,
		"data_dir", cfg.DataDir,
		"watch_enabled", cfg.WatchEnabled,
		"cdp_url", cfg.GetCDPURL(),
		"default_source", cfg.DefaultSource,
		"launch_browser", cfg.LaunchBrowser,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	prefStore, err := prefs.Open(cfg.PrefsPath())
	if err != nil {
		slog.Error("failed to open preferences", "path", cfg.PrefsPath(), "error", err)
		os.Exit(1)
	}
	artifactStore, err := artifacts.NewStore(cfg.ArtifactsDir())
	if err != nil {
		slog.Error("failed to create artifact store", "dir", cfg.ArtifactsDir(), "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	broker := events.NewBroker()

	journalWriter := journal.NewWriter(cfg.JournalDir(), "events", cfg.JournalBufferSize, cfg.JournalMaxFileSize)
	defer func() {
		if err := journalWriter.Close(); err != nil {
			slog.Debug("journal close failed", "error", err)
		}
	}()

	// Event subscribers outlive the server so that uploads finishing during
	// shutdown are still journaled and notified.
	subCtx, stopSubscribers := context.WithCancel(context.Background())
	defer stopSubscribers()
	var subs errgroup.Group
	subs.Go(func() error {
		journal.Record(subCtx, broker, journalWriter)
		return nil
	})
	if cfg.NtfyURL != "" {
		subs.Go(func() error {
			notify.Follow(subCtx, broker, nil, cfg.NtfyURL)
			return nil
		})
	}

	hub := capture.NewStreamHub()
	ffmpeg := capture.NewFFmpegSource(capture.FFmpegConfig{
		Path:        cfg.FFmpegPath,
		InputFormat: cfg.FFmpegFormat,
		InputDevice: cfg.FFmpegDevice,
	})

	notes := notesapi.NewClient(cfg.BackendURL, &http.Client{Timeout: cfg.UploadTimeout})
	svc := controller.NewService(controller.Deps{
		Sources:       []capture.Source{hub, ffmpeg},
		DefaultSource: cfg.DefaultSource,
		Uploader:      notes,
		Prefs:         prefStore,
		Store:         artifactStore,
		Publisher:     broker,
		UploadTimeout: cfg.UploadTimeout,
	})

	if cfg.LaunchBrowser {
		launcher := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.BrowserStartURL,
			ProfileDir: cfg.BrowserProfileDir(),
			Binary:     cfg.BrowserPath,
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	if cfg.WatchEnabled {
		matcher := loadMatcher(cfg.WatchRulesPath)
		w := watcher.New(svc, matcher, watcher.Config{
			RetryDelay: cfg.RetryDelay,
			OnRemoved:  svc.RemoveTab,
		})
		svc.SetTracker(w)

		id, msgs := broker.Subscribe()
		g.Go(func() error {
			defer broker.Unsubscribe(id)
			w.FollowEvents(ctx, msgs)
			return nil
		})
		g.Go(func() error {
			watchBrowser(ctx, cfg.GetCDPURL(), w)
			return nil
		})
	}

	srv := &http.Server{Addr: bindAddr, Handler: api.NewServer(svc, broker, hub)}

	g.Go(func() error {
		slog.Info("recorderd listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("recorderd shutdown failed", "error", err)
		}
		return nil
	})

	runErr := g.Wait()
	if runErr != nil {
		slog.Error("recorderd server failed", "error", runErr)
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), shutdownTimeout)
	if n := svc.StopAll(stopCtx); n > 0 {
		slog.Info("recordings stopped on shutdown", "count", n)
	}
	cancelStop()
	slog.Info("recorderd waiting for uploads in flight")
	svc.Wait()
	stopSubscribers()
	if err := subs.Wait(); err != nil {
		slog.Debug("event subscriber exited with error", "error", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}

// watchBrowser feeds tab events to w, reconnecting to the browser until ctx
// is done.
func watchBrowser(ctx context.Context, cdpURL string, w *watcher.Watcher) {
	for {
		feed := watcher.NewCDPFeed(cdpURL)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := w.Run(ctx, feed.Events()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Debug("tab watcher stopped", "error", err)
			}
		}()
		if err := feed.Run(ctx); err != nil {
			slog.Warn("browser feed failed, retrying", "cdp_url", cdpURL, "retry_in", cdpReconnectDelay, "error", err)
		}
		<-done

		select {
		case <-ctx.Done():
			return
		case <-time.After(cdpReconnectDelay):
		}
	}
}

func loadMatcher(path string) *watcher.Matcher {
	rules, err := config.LoadWatchRules(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("no watch rules file, using default meeting rule", "path", path)
		} else {
			slog.Warn("invalid watch rules, using default meeting rule", "path", path, "error", err)
		}
		return watcher.DefaultMatcher()
	}
	m, err := rules.Matcher()
	if err != nil {
		slog.Warn("invalid watch rules, using default meeting rule", "path", path, "error", err)
		return watcher.DefaultMatcher()
	}
	slog.Info("watch rules loaded", "path", path, "rules", m.Len())
	return m
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
