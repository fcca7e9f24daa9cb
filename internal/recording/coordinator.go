package recording

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/capture"
	"github.com/dgnsrekt/meetnotes/internal/events"
	"github.com/google/uuid"
)

// Sink receives every non-empty artifact produced by Stop.
type Sink interface {
	Deliver(ctx context.Context, artifact Artifact)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, artifact Artifact)

func (f SinkFunc) Deliver(ctx context.Context, artifact Artifact) { f(ctx, artifact) }

// Coordinator owns the recording lifecycle of a single tab context:
// Idle -> Recording -> Idle. Chunk delivery and Stop serialize on mu, and
// Stop detaches the session while holding it; that is the cutoff after
// which chunks are discarded.
type Coordinator struct {
	tabID     string
	sink      Sink
	publisher events.Publisher
	now       func() time.Time
	newID     func() string

	mu         sync.Mutex
	active     *session
	pending    *session
	released   chan struct{} // closed once the last stopped capture is released
	last       *Artifact
	lateChunks int
}

// NewCoordinator creates an idle coordinator. sink and publisher may be nil.
func NewCoordinator(tabID string, sink Sink, publisher events.Publisher) *Coordinator {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Coordinator{
		tabID:     tabID,
		sink:      sink,
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// TabID returns the tab context this coordinator belongs to.
func (c *Coordinator) TabID() string { return c.tabID }

// Start opens a capture on src and begins accumulating chunks. It returns
// as soon as the capture is running; the first chunk arrives later.
//
// The capture is opened and started without holding mu, so a slow source
// never blocks Status or Stop. While it starts the session is pending: it
// already accepts chunks but is not yet visible as recording.
func (c *Coordinator) Start(ctx context.Context, src capture.Source) error {
	c.mu.Lock()
	if c.active != nil || c.pending != nil {
		c.mu.Unlock()
		return NewError(CodeAlreadyRecording, "already recording in tab "+c.tabID, nil)
	}
	s := &session{id: c.newID(), source: src.Name()}
	c.pending = s
	released := c.released
	c.mu.Unlock()

	err := c.begin(ctx, src, s, released)

	c.mu.Lock()
	abandoned := c.pending != s
	c.pending = nil
	if err == nil && !abandoned {
		c.active = s
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if abandoned {
		if stopErr := s.capture.Stop(); stopErr != nil {
			slog.Debug("capture stop after abandoned start failed", "tab_id", c.tabID, "error", stopErr)
		}
		return NewError(CodeSourceUnavailable, "tab "+c.tabID+" went away while recording was starting", nil)
	}

	slog.Info("recording started", "tab_id", c.tabID, "session_id", s.id, "source", s.source, "mime_type", s.mimeType)
	c.publisher.Publish(events.Message{
		Action:  events.ActionRecordingStarted,
		TabID:   c.tabID,
		Payload: map[string]any{"session_id": s.id, "source": s.source},
	})
	return nil
}

// begin waits for the previous session's capture to be released, then
// opens and starts the new one.
func (c *Coordinator) begin(ctx context.Context, src capture.Source, s *session, released <-chan struct{}) error {
	if released != nil {
		select {
		case <-released:
		case <-ctx.Done():
			return NewError(CodeSourceUnavailable, "previous capture still stopping", ctx.Err())
		}
	}

	capt, err := src.Open(ctx, c.tabID)
	if err != nil {
		return NewError(CodeSourceUnavailable, "cannot open "+src.Name()+" source", err)
	}

	c.mu.Lock()
	s.mimeType = capture.NormalizeMimeType(capt.MimeType())
	s.startedAt = c.now()
	s.capture = capt
	c.mu.Unlock()

	if err := capt.Start(c.deliverTo(s), c.failFrom(s)); err != nil {
		return NewError(CodeSourceUnavailable, "cannot start "+src.Name()+" capture", err)
	}
	return nil
}

// current reports whether s is the pending or active session. Callers hold mu.
func (c *Coordinator) current(s *session) bool {
	return c.active == s || c.pending == s
}

func (c *Coordinator) deliverTo(s *session) capture.DeliverFunc {
	return func(chunk []byte) {
		if len(chunk) == 0 {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.current(s) {
			c.lateChunks++
			slog.Debug("late chunk discarded", "tab_id", c.tabID, "session_id", s.id, "bytes", len(chunk))
			return
		}
		s.chunks = append(s.chunks, chunk)
		s.bytes += int64(len(chunk))
	}
}

func (c *Coordinator) failFrom(s *session) capture.FailFunc {
	return func(err error) {
		c.mu.Lock()
		live := c.current(s)
		c.mu.Unlock()
		if !live {
			return
		}
		slog.Warn("capture error", "tab_id", c.tabID, "session_id", s.id, "error", err)
		c.publisher.Publish(events.Message{
			Action:  events.ActionRecordingError,
			TabID:   c.tabID,
			Payload: map[string]any{"error": err.Error()},
		})
	}
}

// Stop ends the active session, assembles its chunks in arrival order and
// hands the artifact to the sink. Stopping an idle coordinator returns
// ErrNotRecording and changes nothing.
func (c *Coordinator) Stop(ctx context.Context) (Artifact, error) {
	c.mu.Lock()
	s := c.active
	if s == nil {
		c.mu.Unlock()
		return Artifact{}, NewError(CodeNotRecording, "not recording in tab "+c.tabID, nil)
	}
	c.active = nil
	chunks := s.chunks
	s.chunks = nil
	released := make(chan struct{})
	c.released = released
	c.mu.Unlock()

	// Called without mu: captures may be blocked delivering into deliverTo.
	if err := s.capture.Stop(); err != nil {
		slog.Warn("capture stop failed", "tab_id", c.tabID, "session_id", s.id, "error", err)
	}
	close(released)
	slog.Info("recording stopped", "tab_id", c.tabID, "session_id", s.id, "chunks", len(chunks), "bytes", s.bytes)
	c.publisher.Publish(events.Message{
		Action:  events.ActionRecordingStopped,
		TabID:   c.tabID,
		Payload: map[string]any{"session_id": s.id, "chunks": len(chunks)},
	})

	data := assemble(chunks)
	if len(data) == 0 {
		return Artifact{}, NewError(CodeEmptyRecording, "no audio was recorded", nil)
	}

	artifact := Artifact{
		ID:        c.newID(),
		TabID:     c.tabID,
		SessionID: s.id,
		MimeType:  s.mimeType,
		Data:      data,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	c.last = &artifact
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.Deliver(ctx, artifact)
	}
	return artifact, nil
}

// Discard ends the active session without producing an artifact. It is
// used when the tab context goes away. A session still starting is
// abandoned and its Start returns an error.
func (c *Coordinator) Discard() bool {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.pending = nil
	if s == nil {
		c.mu.Unlock()
		return false
	}
	released := make(chan struct{})
	c.released = released
	c.mu.Unlock()

	if err := s.capture.Stop(); err != nil {
		slog.Debug("capture stop on discard failed", "tab_id", c.tabID, "error", err)
	}
	close(released)
	slog.Info("recording discarded", "tab_id", c.tabID, "session_id", s.id, "chunks", len(s.chunks))
	return true
}

// Status returns the current state. It has no side effects.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{TabID: c.tabID, State: StateIdle, LateChunks: c.lateChunks}
	if c.last != nil {
		st.LastSize = c.last.Size()
	}
	if s := c.active; s != nil {
		st.State = StateRecording
		st.SessionID = s.id
		st.Source = s.source
		st.MimeType = s.mimeType
		st.Chunks = len(s.chunks)
		st.Bytes = s.bytes
		st.StartedAt = s.startedAt
	}
	return st
}

// LastArtifact returns the most recent artifact, kept until the next
// session's artifact replaces it.
func (c *Coordinator) LastArtifact() (Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Artifact{}, false
	}
	return *c.last, true
}

func assemble(chunks [][]byte) []byte {
	var size int
	for _, ch := range chunks {
		size += len(ch)
	}
	if size == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for _, ch := range chunks {
		buf.Write(ch)
	}
	return buf.Bytes()
}
