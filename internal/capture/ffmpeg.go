package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	defaultChunkBytes  = 32 * 1024
	ffmpegStopTimeout  = 5 * time.Second
	ffmpegStderrLimit  = 4 * 1024
	ffmpegClusterLimit = "1000" // ms per webm cluster, roughly one chunk per second
)

// FFmpegConfig describes how to spawn the ffmpeg capture process.
type FFmpegConfig struct {
	Path        string // binary name or absolute path
	InputFormat string // e.g. "pulse", "avfoundation", "dshow"
	InputDevice string // e.g. "default", ":default"
	ChunkBytes  int
}

// FFmpegSource records from a local audio device through ffmpeg, streaming
// opus-in-webm to stdout.
type FFmpegSource struct {
	cfg      FFmpegConfig
	lookPath func(string) (string, error)
	command  func(name string, args ...string) *exec.Cmd
}

// NewFFmpegSource creates an ffmpeg-backed source.
func NewFFmpegSource(cfg FFmpegConfig) *FFmpegSource {
	if cfg.Path == "" {
		cfg.Path = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.ChunkBytes <= 0 {
		cfg.ChunkBytes = defaultChunkBytes
	}
	return &FFmpegSource{cfg: cfg, lookPath: exec.LookPath, command: exec.Command}
}

func (s *FFmpegSource) Name() string { return "ffmpeg" }

// Args returns the ffmpeg argument list used for every capture.
func (s *FFmpegSource) Args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", s.cfg.InputFormat,
		"-i", s.cfg.InputDevice,
		"-ac", "1",
		"-ar", "48000",
		"-c:a", "libopus",
		"-f", "webm",
		"-cluster_time_limit", ffmpegClusterLimit,
		"pipe:1",
	}
}

func (s *FFmpegSource) Open(ctx context.Context, tabID string) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.lookPath(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found: %v", ErrNotReady, err)
	}
	slog.Debug("ffmpeg capture opened", "tab_id", tabID, "path", path)
	return &ffmpegCapture{
		path:       path,
		args:       s.Args(),
		chunkBytes: s.cfg.ChunkBytes,
		command:    s.command,
		done:       make(chan struct{}),
	}, nil
}

type ffmpegCapture struct {
	path       string
	args       []string
	chunkBytes int
	command    func(name string, args ...string) *exec.Cmd

	mu      sync.Mutex
	cmd     *exec.Cmd
	stderr  *limitedBuffer
	stopped bool
	done    chan struct{}
}

func (c *ffmpegCapture) MimeType() string { return MimeWebMOpus }

func (c *ffmpegCapture) Start(deliver DeliverFunc, fail FailFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil {
		return errors.New("ffmpeg capture already started")
	}

	cmd := c.command(c.path, c.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	c.stderr = &limitedBuffer{limit: ffmpegStderrLimit}
	cmd.Stderr = c.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	c.cmd = cmd
	slog.Info("ffmpeg capture started", "pid", cmd.Process.Pid)

	go c.readLoop(stdout, deliver, fail)
	return nil
}

func (c *ffmpegCapture) readLoop(stdout io.Reader, deliver DeliverFunc, fail FailFunc) {
	defer close(c.done)
	buf := make([]byte, c.chunkBytes)
	for {
		n, err := stdout.Read(buf)
		if n > 0 && !c.isStopped() {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			deliver(chunk)
		}
		if err == nil {
			continue
		}
		if !c.isStopped() && fail != nil {
			if errors.Is(err, io.EOF) {
				fail(fmt.Errorf("ffmpeg exited unexpectedly: %s", strings.TrimSpace(c.stderr.String())))
			} else {
				fail(fmt.Errorf("ffmpeg read: %w", err))
			}
		}
		return
	}
}

func (c *ffmpegCapture) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *ffmpegCapture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	cmd := c.cmd
	c.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	// ffmpeg finalizes the container on SIGINT.
	_ = cmd.Process.Signal(os.Interrupt)
	select {
	case <-c.done:
	case <-time.After(ffmpegStopTimeout):
		slog.Warn("ffmpeg did not exit, killing", "pid", cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-c.done
	}

	if err := cmd.Wait(); err != nil {
		slog.Debug("ffmpeg exit status", "pid", cmd.Process.Pid, "error", err)
	}
	return nil
}

// limitedBuffer keeps the first limit bytes written to it.
type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
