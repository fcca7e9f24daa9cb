package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/events"
)

// Entry is one journal line.
type Entry struct {
	Time    time.Time      `json:"time"`
	Action  string         `json:"action"`
	TabID   string         `json:"tab_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Record subscribes to broker and writes every outbound message until ctx
// is done. The writer is left open.
func Record(ctx context.Context, broker *events.Broker, w *Writer) {
	id, ch := broker.Subscribe()
	defer broker.Unsubscribe(id)

	write := func(msg events.Message) {
		entry := Entry{Time: msg.Time, Action: msg.Action, TabID: msg.TabID, Payload: msg.Payload}
		if err := w.Write(entry); err != nil {
			slog.Debug("journal write failed", "action", msg.Action, "error", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			// Messages already queued are still journaled.
			for {
				select {
				case msg, ok := <-ch:
					if !ok {
						return
					}
					write(msg)
				default:
					return
				}
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			write(msg)
		}
	}
}
