package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// controlWriteTimeout bounds a control frame write to a stalled page.
const controlWriteTimeout = 5 * time.Second

// controlFrame is sent to the page to drive its MediaRecorder.
type controlFrame struct {
	Action string `json:"action"`
}

// helloFrame is the optional first text frame a page sends after
// connecting, announcing the encoder it will use.
type helloFrame struct {
	MimeType string `json:"mime_type"`
}

// StreamHub accepts WebSocket audio streams from browser pages, one per tab,
// and exposes them as a capture Source. Binary frames are chunks; text
// frames are control messages.
type StreamHub struct {
	mu    sync.Mutex
	conns map[string]*streamConn
}

type streamConn struct {
	tabID string
	conn  net.Conn

	writeMu sync.Mutex

	// deliverMu guards the owner and mime type. It is never held while a
	// chunk is handed to the owner.
	deliverMu sync.Mutex
	mimeType  string
	owner     *streamCapture
}

// NewStreamHub creates an empty hub.
func NewStreamHub() *StreamHub {
	return &StreamHub{conns: make(map[string]*streamConn)}
}

func (h *StreamHub) Name() string { return "stream" }

// Connected reports whether a page stream is attached for tabID.
func (h *StreamHub) Connected(tabID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[tabID]
	return ok
}

func (h *StreamHub) Open(ctx context.Context, tabID string) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	sc, ok := h.conns[tabID]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no audio stream connected for tab %s", ErrNotReady, tabID)
	}

	sc.deliverMu.Lock()
	mime := sc.mimeType
	sc.deliverMu.Unlock()
	return &streamCapture{hub: h, tabID: tabID, mimeType: NormalizeMimeType(mime)}, nil
}

// ServeTab upgrades the request to a WebSocket and reads the tab's audio
// stream until the page disconnects. A newer connection for the same tab
// replaces the older one.
func (h *StreamHub) ServeTab(w http.ResponseWriter, r *http.Request, tabID string) {
	if tabID == "" {
		http.Error(w, "tab id is required", http.StatusBadRequest)
		return
	}
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		slog.Warn("stream upgrade failed", "tab_id", tabID, "error", err)
		return
	}

	sc := &streamConn{tabID: tabID, conn: conn}
	h.mu.Lock()
	prev := h.conns[tabID]
	h.conns[tabID] = sc
	h.mu.Unlock()
	if prev != nil {
		slog.Info("stream replaced", "tab_id", tabID)
		_ = prev.conn.Close()
	}
	slog.Info("stream connected", "tab_id", tabID, "remote", r.RemoteAddr)

	h.readLoop(sc)
}

func (h *StreamHub) readLoop(sc *streamConn) {
	defer h.disconnect(sc)
	for {
		data, op, err := wsutil.ReadClientData(sc.conn)
		if err != nil {
			slog.Debug("stream read loop exit", "tab_id", sc.tabID, "error", err)
			return
		}
		switch op {
		case ws.OpText:
			var hello helloFrame
			if json.Unmarshal(data, &hello) != nil || hello.MimeType == "" {
				continue
			}
			sc.deliverMu.Lock()
			sc.mimeType = hello.MimeType
			sc.deliverMu.Unlock()
		case ws.OpBinary:
			sc.route(data)
		}
	}
}

// route hands chunk to the current owner. A chunk read just before the
// owner detaches may still reach it; the owner's deliver func drops chunks
// for sessions that already stopped.
func (sc *streamConn) route(chunk []byte) {
	sc.deliverMu.Lock()
	owner := sc.owner
	sc.deliverMu.Unlock()
	if owner == nil {
		slog.Debug("chunk dropped, not capturing", "tab_id", sc.tabID, "bytes", len(chunk))
		return
	}
	owner.deliver(chunk)
}

func (sc *streamConn) send(frame controlFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	if err := sc.conn.SetWriteDeadline(time.Now().Add(controlWriteTimeout)); err != nil {
		return err
	}
	return wsutil.WriteServerText(sc.conn, data)
}

func (h *StreamHub) disconnect(sc *streamConn) {
	h.mu.Lock()
	if h.conns[sc.tabID] == sc {
		delete(h.conns, sc.tabID)
	}
	h.mu.Unlock()
	_ = sc.conn.Close()

	sc.deliverMu.Lock()
	owner := sc.owner
	sc.owner = nil
	sc.deliverMu.Unlock()

	if owner != nil && owner.fail != nil {
		owner.fail(errors.New("audio stream disconnected"))
	}
	slog.Info("stream disconnected", "tab_id", sc.tabID)
}

type streamCapture struct {
	hub      *StreamHub
	tabID    string
	mimeType string

	deliver DeliverFunc
	fail    FailFunc
	conn    *streamConn
}

func (c *streamCapture) MimeType() string { return c.mimeType }

func (c *streamCapture) Start(deliver DeliverFunc, fail FailFunc) error {
	c.hub.mu.Lock()
	sc, ok := c.hub.conns[c.tabID]
	c.hub.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: audio stream for tab %s went away", ErrNotReady, c.tabID)
	}

	sc.deliverMu.Lock()
	if sc.owner != nil {
		sc.deliverMu.Unlock()
		return fmt.Errorf("audio stream for tab %s is already capturing", c.tabID)
	}
	c.deliver = deliver
	c.fail = fail
	c.conn = sc
	sc.owner = c
	sc.deliverMu.Unlock()

	if err := sc.send(controlFrame{Action: "startRecording"}); err != nil {
		c.detach()
		_ = sc.conn.Close()
		return fmt.Errorf("signal page to start: %w", err)
	}
	return nil
}

func (c *streamCapture) detach() bool {
	if c.conn == nil {
		return false
	}
	c.conn.deliverMu.Lock()
	defer c.conn.deliverMu.Unlock()
	if c.conn.owner != c {
		return false
	}
	c.conn.owner = nil
	return true
}

func (c *streamCapture) Stop() error {
	if !c.detach() {
		return nil
	}
	if err := c.conn.send(controlFrame{Action: "stopRecording"}); err != nil {
		slog.Debug("stop signal not delivered to page", "tab_id", c.tabID, "error", err)
	}
	return nil
}
