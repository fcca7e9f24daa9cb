package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const feedBufSize = 256

// CDPFeed turns Chromium target events into watcher events.
type CDPFeed struct {
	cdpURL string

	mu     sync.Mutex
	out    chan Event
	closed bool
}

// NewCDPFeed creates a feed for the browser at cdpURL
// (e.g. http://127.0.0.1:9222).
func NewCDPFeed(cdpURL string) *CDPFeed {
	return &CDPFeed{cdpURL: cdpURL, out: make(chan Event, feedBufSize)}
}

// Events is closed when Run returns.
func (f *CDPFeed) Events() <-chan Event { return f.out }

// Run connects to the browser, emits an Updated event for every open page
// and then follows target changes until ctx is done.
func (f *CDPFeed) Run(ctx context.Context) error {
	defer f.close()

	slog.Info("connecting to chromium", "url", f.cdpURL)
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, f.cdpURL)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	chromedp.ListenBrowser(browserCtx, f.handle)

	if err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.SetDiscoverTargets(true).Do(cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Browser))
	})); err != nil {
		return fmt.Errorf("failed to enable target discovery: %w", err)
	}

	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}
	pages := 0
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		pages++
		f.emit(Event{Kind: KindUpdated, TabID: string(t.TargetID), URL: t.URL})
	}
	slog.Info("watching browser tabs", "pages", pages)

	select {
	case <-ctx.Done():
	case <-browserCtx.Done():
		if ctx.Err() == nil {
			return fmt.Errorf("browser connection closed")
		}
	}
	return nil
}

func (f *CDPFeed) handle(ev any) {
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		f.fromInfo(e.TargetInfo)
	case *target.EventTargetInfoChanged:
		f.fromInfo(e.TargetInfo)
	case *target.EventTargetDestroyed:
		f.emit(Event{Kind: KindRemoved, TabID: string(e.TargetID)})
	}
}

func (f *CDPFeed) fromInfo(info *target.Info) {
	if info == nil || info.Type != "page" {
		return
	}
	f.emit(Event{Kind: KindUpdated, TabID: string(info.TargetID), URL: info.URL})
}

func (f *CDPFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.out)
	}
}

// emit never blocks the CDP event loop.
func (f *CDPFeed) emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.out <- ev:
	default:
		slog.Warn("tab event dropped, watcher is behind", "kind", ev.Kind, "tab_id", ev.TabID)
	}
}
