package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// SSEHandler streams published messages as server-sent events.
// Clients may filter via ?actions=uploadComplete,uploadError and
// ?tab_id=<id>.
func SSEHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		var actionFilter map[string]bool
		if q := r.URL.Query().Get("actions"); q != "" {
			actionFilter = make(map[string]bool)
			for _, a := range strings.Split(q, ",") {
				if a = strings.TrimSpace(a); a != "" {
					actionFilter[a] = true
				}
			}
		}
		tabFilter := r.URL.Query().Get("tab_id")

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		for {
			select {
			case <-r.Context().Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if actionFilter != nil && !actionFilter[msg.Action] {
					continue
				}
				if tabFilter != "" && msg.TabID != tabFilter {
					continue
				}
				data, err := json.Marshal(msg)
				if err != nil {
					slog.Debug("sse marshal failed", "action", msg.Action, "error", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Action, data); err != nil {
					slog.Debug("sse write failed, listener gone", "subscriber", id, "error", err)
					return
				}
				flusher.Flush()
			}
		}
	}
}
