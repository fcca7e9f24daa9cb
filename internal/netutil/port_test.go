package netutil

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/dgnsrekt/meetnotes/internal/config"
)

// busyAddr returns an address held open for the rest of the test.
func busyAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().String()
}

// freeAddr returns an address that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestSelectBindAddrSkipsBlankAndRepeatedCandidates(t *testing.T) {
	busy := busyAddr(t)
	free := freeAddr(t)

	got, err := SelectBindAddr(busy, []string{"", busy, " " + free + " "}, true)
	if err != nil {
		t.Fatalf("SelectBindAddr() error = %v", err)
	}
	if got != free {
		t.Fatalf("SelectBindAddr() = %q; want %q", got, free)
	}
}

func TestSelectBindAddrWithoutFallback(t *testing.T) {
	busy := busyAddr(t)

	_, err := SelectBindAddr(busy, []string{freeAddr(t)}, false)
	if err == nil {
		t.Fatal("SelectBindAddr() error = nil; want in-use error")
	}
	if errors.Is(err, ErrNoBindAddr) {
		t.Fatalf("SelectBindAddr() error = %v; candidates should not be tried", err)
	}
	if !strings.Contains(err.Error(), busy) {
		t.Fatalf("SelectBindAddr() error = %q; want it to name %s", err, busy)
	}
}

func TestSelectBindAddrReportsTriedAddresses(t *testing.T) {
	a, b := busyAddr(t), busyAddr(t)

	_, err := SelectBindAddr(a, []string{b, a}, true)
	if !errors.Is(err, ErrNoBindAddr) {
		t.Fatalf("SelectBindAddr() error = %v; want ErrNoBindAddr", err)
	}
	if want := "(tried " + a + ", " + b + ")"; !strings.HasSuffix(err.Error(), want) {
		t.Fatalf("SelectBindAddr() error = %q; want suffix %q", err, want)
	}
}

func TestSelectBindAddrFromRecorderConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	busy := busyAddr(t)
	free := freeAddr(t)
	t.Setenv("RECORDER_BIND_ADDR", busy)
	t.Setenv("RECORDER_PORT_CANDIDATES", busy+", "+free)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if !cfg.PortAutoFallback {
		t.Fatal("PortAutoFallback default = false; want true")
	}

	got, err := SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		t.Fatalf("SelectBindAddr() error = %v", err)
	}
	if got != free {
		t.Fatalf("SelectBindAddr() = %q; want fallback %q", got, free)
	}
}
