package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the recorder daemon.
type Config struct {
	// HTTP control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Logging
	LogLevel string
	LogFile  string

	// Notes backend
	BackendURL    string
	UploadTimeout time.Duration

	// Local state
	DataDir            string
	JournalBufferSize  int
	JournalMaxFileSize int

	// Tab watching over CDP
	CDPAddress     string
	CDPPort        int
	WatchEnabled   bool
	WatchRulesPath string
	RetryDelay     time.Duration

	// Optional Chromium launch
	LaunchBrowser   bool
	BrowserPath     string
	BrowserStartURL string

	// Audio capture
	DefaultSource string
	FFmpegPath    string
	FFmpegFormat  string
	FFmpegDevice  string

	// Optional ntfy topic URL for upload notifications
	NtfyURL string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		BindAddr:           getEnvOrDefault("RECORDER_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:     getEnvListOrDefault("RECORDER_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192", "127.0.0.1:8193"}),
		PortAutoFallback:   getEnvBoolOrDefault("RECORDER_PORT_AUTO_FALLBACK", true),
		LogLevel:           strings.ToLower(getEnvOrDefault("RECORDER_LOG_LEVEL", "info")),
		LogFile:            getEnvOrDefault("RECORDER_LOG_FILE", "logs/recorderd.log"),
		BackendURL:         strings.TrimRight(getEnvOrDefault("MEETNOTES_BACKEND_URL", "http://localhost:5000"), "/"),
		UploadTimeout:      time.Duration(getEnvIntOrDefault("RECORDER_UPLOAD_TIMEOUT_SEC", 300)) * time.Second,
		DataDir:            getEnvOrDefault("RECORDER_DATA_DIR", "./recorder_data"),
		JournalBufferSize:  getEnvIntOrDefault("RECORDER_JOURNAL_BUFFER_SIZE", 1000),
		JournalMaxFileSize: getEnvIntOrDefault("RECORDER_JOURNAL_MAX_FILE_SIZE_MB", 50),
		CDPAddress:         getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:            getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		WatchEnabled:       getEnvBoolOrDefault("RECORDER_WATCH_ENABLED", true),
		WatchRulesPath:     getEnvOrDefault("RECORDER_WATCH_RULES", "./config/watch_rules.yaml"),
		RetryDelay:         time.Duration(getEnvIntOrDefault("RECORDER_RETRY_DELAY_MS", 1000)) * time.Millisecond,
		LaunchBrowser:      getEnvBoolOrDefault("RECORDER_LAUNCH_BROWSER", false),
		BrowserPath:        getEnvOrDefault("RECORDER_BROWSER_PATH", ""),
		BrowserStartURL:    getEnvOrDefault("RECORDER_BROWSER_START_URL", "https://meet.google.com"),
		DefaultSource:      getEnvOrDefault("RECORDER_DEFAULT_SOURCE", "stream"),
		FFmpegPath:         getEnvOrDefault("RECORDER_FFMPEG_PATH", "ffmpeg"),
		FFmpegFormat:       getEnvOrDefault("RECORDER_FFMPEG_FORMAT", "pulse"),
		FFmpegDevice:       getEnvOrDefault("RECORDER_FFMPEG_DEVICE", "default"),
		NtfyURL:            getEnvOrDefault("RECORDER_NTFY_URL", ""),
	}
	if cfg.UploadTimeout < 10*time.Second {
		cfg.UploadTimeout = 10 * time.Second
	}
	if cfg.RetryDelay < 100*time.Millisecond {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if cfg.JournalBufferSize < 1 {
		cfg.JournalBufferSize = 1
	}
	switch cfg.DefaultSource {
	case "stream", "ffmpeg":
	default:
		return nil, fmt.Errorf("RECORDER_DEFAULT_SOURCE must be stream or ffmpeg, got %q", cfg.DefaultSource)
	}

	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// PrefsPath is the persisted preferences file.
func (c *Config) PrefsPath() string { return filepath.Join(c.DataDir, "prefs.json") }

// ArtifactsDir holds recordings kept for download.
func (c *Config) ArtifactsDir() string { return filepath.Join(c.DataDir, "artifacts") }

// BrowserProfileDir is the user data dir of a launched browser.
func (c *Config) BrowserProfileDir() string { return filepath.Join(c.DataDir, "browser-profile") }

// JournalDir holds the date-organized event journal.
func (c *Config) JournalDir() string { return filepath.Join(c.DataDir, "journal") }

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
