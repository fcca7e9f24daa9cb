package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/capture"
	"github.com/dgnsrekt/meetnotes/internal/events"
)

const DefaultRetryDelay = time.Second

// Kind of tab lifecycle event.
type Kind string

const (
	KindUpdated Kind = "updated"
	KindRemoved Kind = "removed"
)

// Event is a tab URL change or tab removal.
type Event struct {
	Kind  Kind
	TabID string
	URL   string
}

// Commander carries out the watcher's decisions.
type Commander interface {
	AutoStart(ctx context.Context, tabID string) error
	AutoStop(ctx context.Context, tabID string) error
}

// Config tunes a Watcher. Zero values use the defaults.
type Config struct {
	RetryDelay time.Duration
	// Retryable decides whether a failed start gets its single retry.
	// Defaults to errors that wrap capture.ErrNotReady.
	Retryable func(error) bool
	// OnRemoved is called after a removed tab leaves the engaged set.
	OnRemoved func(tabID string)
}

// Watcher starts recording when a tab enters a meeting and stops it when
// the tab navigates away. The engaged set holds tabs for which a start was
// issued and no stop has been issued since.
type Watcher struct {
	cmd       Commander
	matcher   *Matcher
	delay     time.Duration
	retryable func(error) bool
	onRemoved func(string)
	afterFunc func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	engaged map[string]struct{}
}

func New(cmd Commander, matcher *Matcher, cfg Config) *Watcher {
	if matcher == nil {
		matcher = DefaultMatcher()
	}
	w := &Watcher{
		cmd:       cmd,
		matcher:   matcher,
		delay:     cfg.RetryDelay,
		retryable: cfg.Retryable,
		onRemoved: cfg.OnRemoved,
		afterFunc: time.AfterFunc,
		engaged:   make(map[string]struct{}),
	}
	if w.delay <= 0 {
		w.delay = DefaultRetryDelay
	}
	if w.retryable == nil {
		w.retryable = func(err error) bool { return errors.Is(err, capture.ErrNotReady) }
	}
	return w
}

// Run handles events until ctx is done or the channel closes.
func (w *Watcher) Run(ctx context.Context, evs <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-evs:
			if !ok {
				return nil
			}
			w.Handle(ctx, ev)
		}
	}
}

// Handle applies one event to the engaged set and issues at most one
// command.
func (w *Watcher) Handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case KindRemoved:
		w.mu.Lock()
		delete(w.engaged, ev.TabID)
		w.mu.Unlock()
		slog.Debug("tab removed", "tab_id", ev.TabID)
		if w.onRemoved != nil {
			w.onRemoved(ev.TabID)
		}
	case KindUpdated:
		qualifies := w.matcher.Matches(ev.URL)

		w.mu.Lock()
		_, engaged := w.engaged[ev.TabID]
		switch {
		case qualifies && !engaged:
			w.engaged[ev.TabID] = struct{}{}
		case !qualifies && engaged:
			delete(w.engaged, ev.TabID)
		}
		w.mu.Unlock()

		switch {
		case qualifies && !engaged:
			slog.Info("meeting detected, starting recording", "tab_id", ev.TabID, "url", ev.URL)
			w.start(ctx, ev.TabID)
		case !qualifies && engaged:
			slog.Info("left meeting, stopping recording", "tab_id", ev.TabID, "url", ev.URL)
			if err := w.cmd.AutoStop(ctx, ev.TabID); err != nil {
				slog.Warn("auto stop failed", "tab_id", ev.TabID, "error", err)
			}
		}
	}
}

func (w *Watcher) start(ctx context.Context, tabID string) {
	err := w.cmd.AutoStart(ctx, tabID)
	if err == nil {
		return
	}
	if !w.retryable(err) {
		slog.Warn("auto start failed", "tab_id", tabID, "error", err)
		return
	}
	slog.Info("auto start not ready, retrying once", "tab_id", tabID, "delay", w.delay, "error", err)
	w.afterFunc(w.delay, func() {
		if !w.Engaged(tabID) || ctx.Err() != nil {
			return
		}
		if err := w.cmd.AutoStart(ctx, tabID); err != nil {
			slog.Warn("auto start retry failed", "tab_id", tabID, "error", err)
		}
	})
}

// MarkEngaged records a start that did not come from the watcher.
func (w *Watcher) MarkEngaged(tabID string) {
	w.mu.Lock()
	w.engaged[tabID] = struct{}{}
	w.mu.Unlock()
}

// MarkReleased records a stop that did not come from the watcher.
func (w *Watcher) MarkReleased(tabID string) {
	w.mu.Lock()
	delete(w.engaged, tabID)
	w.mu.Unlock()
}

func (w *Watcher) Engaged(tabID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.engaged[tabID]
	return ok
}

// EngagedTabs returns the engaged tab IDs in sorted order.
func (w *Watcher) EngagedTabs() []string {
	w.mu.Lock()
	out := make([]string, 0, len(w.engaged))
	for id := range w.engaged {
		out = append(out, id)
	}
	w.mu.Unlock()
	sort.Strings(out)
	return out
}

// FollowEvents keeps the engaged set in step with recordings started or
// stopped by hand.
func (w *Watcher) FollowEvents(ctx context.Context, msgs <-chan events.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			switch msg.Action {
			case events.ActionRecordingStarted:
				w.MarkEngaged(msg.TabID)
			case events.ActionRecordingStopped:
				w.MarkReleased(msg.TabID)
			}
		}
	}
}
