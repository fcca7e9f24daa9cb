package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/events"
)

const sendTimeout = 10 * time.Second

// Send posts a plain-text message to an ntfy topic URL. title is sent as
// the ntfy Title header when non-empty.
func Send(ctx context.Context, client *http.Client, endpoint, title, message string) error {
	if endpoint == "" {
		return errors.New("ntfy endpoint is required")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

// Format renders an outbound message as an ntfy title and body. ok is
// false for actions that are not worth a notification.
func Format(msg events.Message) (title, body string, ok bool) {
	switch msg.Action {
	case events.ActionUploadComplete:
		name, _ := msg.Payload["title"].(string)
		if name == "" {
			name = "Untitled meeting"
		}
		return "Meeting notes ready", name, true
	case events.ActionUploadError:
		reason, _ := msg.Payload["error"].(string)
		if reason == "" {
			reason = "unknown error"
		}
		return "Meeting notes failed", reason, true
	case events.ActionRecordingComplete:
		filename, _ := msg.Payload["filename"].(string)
		return "Recording saved", filename + " is ready to download", true
	default:
		return "", "", false
	}
}

// Follow subscribes to broker and forwards notable messages to endpoint
// until ctx is done. Delivery failures are logged and dropped.
func Follow(ctx context.Context, broker *events.Broker, client *http.Client, endpoint string) {
	id, ch := broker.Subscribe()
	defer broker.Unsubscribe(id)

	// Sends outlive ctx so that queued notifications still go out on shutdown.
	sendBase := context.WithoutCancel(ctx)
	send := func(msg events.Message) {
		title, body, notable := Format(msg)
		if !notable {
			return
		}
		sendCtx, cancel := context.WithTimeout(sendBase, sendTimeout)
		defer cancel()
		if err := Send(sendCtx, client, endpoint, title, body); err != nil {
			slog.Debug("ntfy notification failed", "action", msg.Action, "tab_id", msg.TabID, "error", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case msg, ok := <-ch:
					if !ok {
						return
					}
					send(msg)
				default:
					return
				}
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			send(msg)
		}
	}
}
