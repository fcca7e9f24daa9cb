package browser

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestArgsEnableRemoteDebuggingAndMedia(t *testing.T) {
	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9220, ProfileDir: "/tmp/profile"})
	args := l.Args()

	for _, want := range []string{
		"--remote-debugging-port=9220",
		"--remote-debugging-address=127.0.0.1",
		"--user-data-dir=/tmp/profile",
		"--use-fake-ui-for-media-stream",
	} {
		if !slices.Contains(args, want) {
			t.Fatalf("Args() = %v; missing %q", args, want)
		}
	}
	if got, want := args[len(args)-1], "https://meet.google.com"; got != want {
		t.Fatalf("start url = %q; want %q", got, want)
	}
}

func TestLaunchSkipsWhenPortInUse(t *testing.T) {
	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9220})
	l.portOpen = func(string, int) bool { return true }
	l.lookPath = func(string) (string, error) {
		t.Fatal("browser detection should not run when CDP is already up")
		return "", nil
	}

	if err := l.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if l.Running() {
		t.Fatal("Running() = true; want false for an existing browser")
	}
}

func TestLaunchReportsMissingBrowser(t *testing.T) {
	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9220, Binary: "not-a-browser"})
	l.portOpen = func(string, int) bool { return false }
	notFound := errors.New("not found")
	l.lookPath = func(string) (string, error) { return "", notFound }

	if err := l.Launch(context.Background()); !errors.Is(err, notFound) {
		t.Fatalf("Launch() error = %v; want %v", err, notFound)
	}
}
