package recording

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/capture"
	"github.com/dgnsrekt/meetnotes/internal/events"
	"github.com/google/go-cmp/cmp"
)

type fakeCapture struct {
	mime     string
	startErr error

	// startGate and stopGate, when set, hold Start and Stop until closed.
	startGate chan struct{}
	stopGate  chan struct{}

	mu      sync.Mutex
	deliver capture.DeliverFunc
	fail    capture.FailFunc
	stopped bool
}

func (f *fakeCapture) MimeType() string { return f.mime }

func (f *fakeCapture) Start(deliver capture.DeliverFunc, fail capture.FailFunc) error {
	if f.startGate != nil {
		<-f.startGate
	}
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.deliver, f.fail = deliver, fail
	f.mu.Unlock()
	return nil
}

func (f *fakeCapture) Stop() error {
	if f.stopGate != nil {
		<-f.stopGate
	}
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return nil
}

func (f *fakeCapture) emit(chunk string) {
	f.mu.Lock()
	d := f.deliver
	f.mu.Unlock()
	d([]byte(chunk))
}

type fakeSource struct {
	openErr  error
	captures []*fakeCapture
	next     func() *fakeCapture
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Open(context.Context, string) (capture.Capture, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	c := &fakeCapture{mime: capture.MimeWebM}
	if s.next != nil {
		c = s.next()
	}
	s.captures = append(s.captures, c)
	return c, nil
}

func (s *fakeSource) last() *fakeCapture { return s.captures[len(s.captures)-1] }

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []events.Message
}

func (p *recordingPublisher) Publish(msg events.Message) {
	p.mu.Lock()
	p.msgs = append(p.msgs, msg)
	p.mu.Unlock()
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Action)
	}
	return out
}

func newTestCoordinator(sink Sink) (*Coordinator, *recordingPublisher) {
	pub := &recordingPublisher{}
	c := NewCoordinator("tab-1", sink, pub)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c, pub
}

func TestStopAssemblesChunksInArrivalOrder(t *testing.T) {
	var delivered []Artifact
	c, pub := newTestCoordinator(SinkFunc(func(_ context.Context, a Artifact) {
		delivered = append(delivered, a)
	}))
	src := &fakeSource{}

	if err := c.Start(context.Background(), src); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for _, ch := range []string{"one-", "", "two-", "three"} {
		src.last().emit(ch)
	}

	art, err := c.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got, want := string(art.Data), "one-two-three"; got != want {
		t.Fatalf("artifact data = %q; want %q", got, want)
	}
	if got, want := art.Filename(), "meet-recording-1700000000000.webm"; got != want {
		t.Fatalf("Filename() = %q; want %q", got, want)
	}
	if len(delivered) != 1 || delivered[0].ID != art.ID {
		t.Fatalf("sink got %d artifacts; want the stopped one", len(delivered))
	}
	if !src.last().stopped {
		t.Fatal("capture not stopped")
	}
	if got := c.Status().State; got != StateIdle {
		t.Fatalf("state after Stop = %q; want idle", got)
	}
	want := []string{events.ActionRecordingStarted, events.ActionRecordingStopped}
	if diff := cmp.Diff(want, pub.actions()); diff != "" {
		t.Fatalf("published actions mismatch (-want +got):\n%s", diff)
	}
}

func TestChunksAfterStopCutoffAreIgnored(t *testing.T) {
	var sinkData string
	c, _ := newTestCoordinator(SinkFunc(func(_ context.Context, a Artifact) {
		sinkData = string(a.Data)
	}))
	src := &fakeSource{}
	if err := c.Start(context.Background(), src); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	old := src.last()
	old.emit("kept")

	art, err := c.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	old.emit("late")

	if got := string(art.Data); got != "kept" {
		t.Fatalf("artifact = %q; want %q", got, "kept")
	}
	if sinkData != "kept" {
		t.Fatalf("sink data = %q; want %q", sinkData, "kept")
	}

	// A late chunk from the previous capture must not leak into the next session.
	if err := c.Start(context.Background(), src); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	old.emit("stale")
	src.last().emit("fresh")

	art, err = c.Stop(context.Background())
	if err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if got := string(art.Data); got != "fresh" {
		t.Fatalf("second artifact = %q; want %q", got, "fresh")
	}
	if got := c.Status().LateChunks; got != 2 {
		t.Fatalf("LateChunks = %d; want 2", got)
	}
}

func TestStartTwiceIsAlreadyRecording(t *testing.T) {
	c, _ := newTestCoordinator(nil)
	src := &fakeSource{}
	if err := c.Start(context.Background(), src); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := c.Start(context.Background(), src)
	if !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start() error = %v; want ErrAlreadyRecording", err)
	}
	if got := c.Status().State; got != StateRecording {
		t.Fatalf("state = %q; want recording", got)
	}
	if got := len(src.captures); got != 1 {
		t.Fatalf("captures opened = %d; want 1", got)
	}
}

func TestStopWithNoChunksIsEmptyRecording(t *testing.T) {
	called := false
	c, _ := newTestCoordinator(SinkFunc(func(context.Context, Artifact) { called = true }))
	if err := c.Start(context.Background(), &fakeSource{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, err := c.Stop(context.Background())
	if !errors.Is(err, ErrEmptyRecording) {
		t.Fatalf("Stop() error = %v; want ErrEmptyRecording", err)
	}
	if got := c.Status().State; got != StateIdle {
		t.Fatalf("state = %q; want idle", got)
	}
	if called {
		t.Fatal("sink called for empty recording")
	}
	if _, ok := c.LastArtifact(); ok {
		t.Fatal("LastArtifact() set for empty recording")
	}
}

func TestStopWhileIdleIsNotRecording(t *testing.T) {
	c, pub := newTestCoordinator(nil)

	_, err := c.Stop(context.Background())
	if !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop() error = %v; want ErrNotRecording", err)
	}
	if errors.Is(err, ErrEmptyRecording) {
		t.Fatal("NotRecording matched EmptyRecording sentinel")
	}
	if got := len(pub.actions()); got != 0 {
		t.Fatalf("published %d messages; want none", got)
	}
}

func TestStartSourceFailuresAreSourceUnavailable(t *testing.T) {
	c, _ := newTestCoordinator(nil)

	err := c.Start(context.Background(), &fakeSource{openErr: capture.ErrNotReady})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Start() error = %v; want ErrSourceUnavailable", err)
	}
	if !errors.Is(err, capture.ErrNotReady) {
		t.Fatalf("Start() error = %v; want wrapped ErrNotReady", err)
	}

	src := &fakeSource{next: func() *fakeCapture {
		return &fakeCapture{startErr: errors.New("permission denied")}
	}}
	err = c.Start(context.Background(), src)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Start() error = %v; want ErrSourceUnavailable", err)
	}
	if got := c.Status().State; got != StateIdle {
		t.Fatalf("state = %q; want idle", got)
	}
}

func TestCaptureFailurePublishesRecordingError(t *testing.T) {
	c, pub := newTestCoordinator(nil)
	src := &fakeSource{}
	if err := c.Start(context.Background(), src); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	src.last().fail(errors.New("encoder crashed"))

	if got := c.Status().State; got != StateRecording {
		t.Fatalf("state = %q; want recording", got)
	}
	actions := pub.actions()
	if got := actions[len(actions)-1]; got != events.ActionRecordingError {
		t.Fatalf("last action = %q; want %q", got, events.ActionRecordingError)
	}
}

func TestLastArtifactSupersededByNextSession(t *testing.T) {
	c, _ := newTestCoordinator(nil)
	src := &fakeSource{}

	for _, payload := range []string{"first", "second"} {
		if err := c.Start(context.Background(), src); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		src.last().emit(payload)
		if _, err := c.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	}

	art, ok := c.LastArtifact()
	if !ok {
		t.Fatal("LastArtifact() missing")
	}
	if got := string(art.Data); got != "second" {
		t.Fatalf("LastArtifact() = %q; want %q", got, "second")
	}
	if got := c.Status().LastSize; got != int64(len("second")) {
		t.Fatalf("LastSize = %d; want %d", got, len("second"))
	}
}

func TestRegistryRemoveDiscardsActiveSession(t *testing.T) {
	var sinkCalls int
	reg := NewRegistry(func(tabID string) *Coordinator {
		return NewCoordinator(tabID, SinkFunc(func(context.Context, Artifact) { sinkCalls++ }), nil)
	})
	src := &fakeSource{}

	c := reg.Get("tab-9")
	if reg.Get("tab-9") != c {
		t.Fatal("Get() returned a different coordinator for the same tab")
	}
	if err := c.Start(context.Background(), src); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	src.last().emit("audio")

	if !reg.Remove("tab-9") {
		t.Fatal("Remove() = false; want true for active session")
	}
	if !src.last().stopped {
		t.Fatal("capture not stopped on removal")
	}
	if sinkCalls != 0 {
		t.Fatalf("sink called %d times on removal; want 0", sinkCalls)
	}
	if _, ok := reg.Lookup("tab-9"); ok {
		t.Fatal("tab still registered after Remove")
	}
	if reg.Remove("tab-9") {
		t.Fatal("second Remove() = true; want false")
	}
}

func TestStatusAnswersWhileCaptureIsStarting(t *testing.T) {
	c, _ := newTestCoordinator(nil)
	gate := make(chan struct{})
	src := &fakeSource{next: func() *fakeCapture {
		return &fakeCapture{mime: capture.MimeWebM, startGate: gate}
	}}

	started := make(chan error, 1)
	go func() { started <- c.Start(context.Background(), src) }()

	statusDone := make(chan Status, 1)
	go func() {
		// Give Start time to reach the blocked capture.
		time.Sleep(20 * time.Millisecond)
		statusDone <- c.Status()
	}()
	select {
	case st := <-statusDone:
		if st.Recording() {
			t.Fatalf("Status() while starting = %q; want idle", st.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Status() blocked behind a starting capture")
	}
	if err := c.Start(context.Background(), &fakeSource{}); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("concurrent Start() error = %v; want ErrAlreadyRecording", err)
	}

	close(gate)
	if err := <-started; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !c.Status().Recording() {
		t.Fatal("Status() after start = idle; want recording")
	}
}

func TestStartWaitsForPreviousCaptureToRelease(t *testing.T) {
	c, _ := newTestCoordinator(nil)
	stopGate := make(chan struct{})
	first := &fakeCapture{mime: capture.MimeWebM, stopGate: stopGate}
	calls := 0
	src := &fakeSource{next: func() *fakeCapture {
		calls++
		if calls == 1 {
			return first
		}
		return &fakeCapture{mime: capture.MimeWebM}
	}}

	if err := c.Start(context.Background(), src); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	first.emit("audio")

	stopped := make(chan error, 1)
	go func() {
		_, err := c.Stop(context.Background())
		stopped <- err
	}()
	for c.Status().Recording() {
		time.Sleep(time.Millisecond)
	}

	restarted := make(chan error, 1)
	go func() { restarted <- c.Start(context.Background(), src) }()
	select {
	case err := <-restarted:
		t.Fatalf("Start() returned %v before the previous capture was released", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(stopGate)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := <-restarted; err != nil {
		t.Fatalf("Start() after release error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("captures opened = %d; want 2", calls)
	}
}

func TestDiscardAbandonsStartingSession(t *testing.T) {
	c, _ := newTestCoordinator(nil)
	gate := make(chan struct{})
	var starting *fakeCapture
	src := &fakeSource{next: func() *fakeCapture {
		starting = &fakeCapture{mime: capture.MimeWebM, startGate: gate}
		return starting
	}}

	started := make(chan error, 1)
	go func() { started <- c.Start(context.Background(), src) }()
	time.Sleep(20 * time.Millisecond)

	if c.Discard() {
		t.Fatal("Discard() = true for a session that never started")
	}
	close(gate)

	if err := <-started; !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Start() error = %v; want ErrSourceUnavailable", err)
	}
	if !starting.stopped {
		t.Fatal("abandoned capture was not stopped")
	}
	if c.Status().Recording() {
		t.Fatal("Status() = recording after abandoned start")
	}
}
