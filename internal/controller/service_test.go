package controller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/artifacts"
	"github.com/dgnsrekt/meetnotes/internal/capture"
	"github.com/dgnsrekt/meetnotes/internal/events"
	"github.com/dgnsrekt/meetnotes/internal/notesapi"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
	"github.com/dgnsrekt/meetnotes/internal/recording"
)

// pushCapture hands its deliver func to the test.
type pushCapture struct {
	mu      sync.Mutex
	deliver capture.DeliverFunc
}

func (c *pushCapture) MimeType() string { return capture.MimeWebMOpus }

func (c *pushCapture) Start(deliver capture.DeliverFunc, _ capture.FailFunc) error {
	c.mu.Lock()
	c.deliver = deliver
	c.mu.Unlock()
	return nil
}

func (c *pushCapture) Stop() error { return nil }

func (c *pushCapture) push(b string) {
	c.mu.Lock()
	d := c.deliver
	c.mu.Unlock()
	d([]byte(b))
}

type pushSource struct {
	name string
	last *pushCapture
}

func (s *pushSource) Name() string { return s.name }

func (s *pushSource) Open(context.Context, string) (capture.Capture, error) {
	s.last = &pushCapture{}
	return s.last, nil
}

type fakeUploader struct {
	mu    sync.Mutex
	files []notesapi.AudioFile
	opts  []notesapi.Options
	err   error
}

func (u *fakeUploader) UploadAudio(_ context.Context, f notesapi.AudioFile, o notesapi.Options) (notesapi.Note, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files = append(u.files, f)
	u.opts = append(u.opts, o)
	if u.err != nil {
		return notesapi.Note{}, u.err
	}
	return notesapi.Note{ID: "note-1", Title: "Meeting"}, nil
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []events.Message
}

func (p *capturePublisher) Publish(m events.Message) {
	p.mu.Lock()
	p.msgs = append(p.msgs, m)
	p.mu.Unlock()
}

func (p *capturePublisher) find(action string) (events.Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.msgs {
		if m.Action == action {
			return m, true
		}
	}
	return events.Message{}, false
}

type testEnv struct {
	svc   *Service
	src   *pushSource
	up    *fakeUploader
	pub   *capturePublisher
	prefs *prefs.Store
	store *artifacts.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	ps, err := prefs.Open(filepath.Join(dir, "prefs.json"))
	if err != nil {
		t.Fatalf("prefs.Open() error = %v", err)
	}
	store, err := artifacts.NewStore(filepath.Join(dir, "artifacts"))
	if err != nil {
		t.Fatalf("artifacts.NewStore() error = %v", err)
	}
	env := &testEnv{
		src:   &pushSource{name: "stream"},
		up:    &fakeUploader{},
		pub:   &capturePublisher{},
		prefs: ps,
		store: store,
	}
	env.svc = NewService(Deps{
		Sources:       []capture.Source{env.src},
		Uploader:      env.up,
		Prefs:         ps,
		Store:         store,
		Publisher:     env.pub,
		UploadTimeout: time.Second,
	})
	return env
}

func (e *testEnv) record(t *testing.T, tabID string, chunks ...string) {
	t.Helper()
	ctx := context.Background()
	if err := e.svc.StartRecording(ctx, tabID, ""); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	for _, c := range chunks {
		e.src.last.push(c)
	}
	if err := e.svc.StopRecording(ctx, tabID); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
}

func TestRequireNonEmpty(t *testing.T) {
	s := &Service{}
	if err := s.requireNonEmpty("tab-1", "tab_id"); err != nil {
		t.Fatalf("requireNonEmpty() = %v; want nil", err)
	}

	err := s.requireNonEmpty("   ", "tab_id")
	var got *recording.Error
	if !errors.As(err, &got) {
		t.Fatalf("requireNonEmpty() = %T; want *recording.Error", err)
	}
	if got.Code != recording.CodeValidation {
		t.Fatalf("requireNonEmpty() code = %q; want %q", got.Code, recording.CodeValidation)
	}
	if got.Message != "tab_id is required" {
		t.Fatalf("requireNonEmpty() message = %q; want %q", got.Message, "tab_id is required")
	}
}

func TestStopUploadsWithCurrentOptions(t *testing.T) {
	env := newTestEnv(t)
	detail := "brief"
	if _, err := env.svc.UpdatePreferences(context.Background(), prefs.Patch{DetailLevel: &detail}); err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}

	env.record(t, "tab-1", "ab", "cd")
	env.svc.Wait()

	if len(env.up.files) != 1 {
		t.Fatalf("uploads = %d; want 1", len(env.up.files))
	}
	f := env.up.files[0]
	if string(f.Data) != "abcd" || f.MimeType != capture.MimeWebMOpus {
		t.Fatalf("uploaded %q as %q; want abcd as %q", f.Data, f.MimeType, capture.MimeWebMOpus)
	}
	if got := env.up.opts[0].DetailLevel; got != notesapi.DetailBrief {
		t.Fatalf("DetailLevel = %q; want brief", got)
	}
	if _, ok := env.pub.find(events.ActionUploadStarted); !ok {
		t.Fatal("uploadStarted not published")
	}
	msg, ok := env.pub.find(events.ActionUploadComplete)
	if !ok || msg.Payload["note_id"] != "note-1" {
		t.Fatalf("uploadComplete = %+v, %v; want note-1", msg, ok)
	}
	if got := env.prefs.Get().LastArtifactSize; got != 4 {
		t.Fatalf("LastArtifactSize = %d; want 4", got)
	}
	meta, ok := env.store.Latest("tab-1")
	if !ok || !meta.Uploaded || meta.NoteID != "note-1" {
		t.Fatalf("stored meta = %+v, %v; want uploaded note-1", meta, ok)
	}
}

func TestUploadFailurePublishesApplicationMessage(t *testing.T) {
	env := newTestEnv(t)
	env.up.err = &notesapi.ApplicationError{Message: "quota exceeded"}

	env.record(t, "tab-1", "x")
	env.svc.Wait()

	msg, ok := env.pub.find(events.ActionUploadError)
	if !ok {
		t.Fatal("uploadError not published")
	}
	if got := msg.Payload["error"]; got != "quota exceeded" {
		t.Fatalf("error payload = %v; want quota exceeded", got)
	}
}

func TestHoldForDownloadWhenAutoUploadOff(t *testing.T) {
	env := newTestEnv(t)
	off := false
	if _, err := env.svc.UpdatePreferences(context.Background(), prefs.Patch{AutoUpload: &off}); err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}

	env.record(t, "tab-1", "held")
	env.svc.Wait()

	if len(env.up.files) != 0 {
		t.Fatalf("uploads = %d; want 0", len(env.up.files))
	}
	msg, ok := env.pub.find(events.ActionRecordingComplete)
	if !ok || msg.Payload["size"] != int64(4) {
		t.Fatalf("recordingComplete = %+v, %v; want size 4", msg, ok)
	}

	a, err := env.svc.DownloadRecording(context.Background(), "tab-1")
	if err != nil {
		t.Fatalf("DownloadRecording() error = %v", err)
	}
	if string(a.Data) != "held" {
		t.Fatalf("download = %q; want held", a.Data)
	}
}

func TestDownloadFallsBackToStore(t *testing.T) {
	env := newTestEnv(t)
	off := false
	if _, err := env.svc.UpdatePreferences(context.Background(), prefs.Patch{AutoUpload: &off}); err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	env.record(t, "tab-1", "disk")

	// A fresh service over the same store simulates a restart.
	restarted := NewService(Deps{Sources: []capture.Source{env.src}, Prefs: env.prefs, Store: env.store})
	a, err := restarted.DownloadRecording(context.Background(), "tab-1")
	if err != nil {
		t.Fatalf("DownloadRecording() error = %v", err)
	}
	if string(a.Data) != "disk" || a.Filename() == "" {
		t.Fatalf("download = %q (%s); want disk", a.Data, a.Filename())
	}

	if _, err := restarted.DownloadRecording(context.Background(), "tab-2"); !errors.Is(err, recording.ErrNoArtifact) {
		t.Fatalf("DownloadRecording(tab-2) error = %v; want ErrNoArtifact", err)
	}
}

func TestEmptyStopPublishesNoAudioError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.svc.StartRecording(ctx, "tab-1", ""); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}

	err := env.svc.StopRecording(ctx, "tab-1")
	if !errors.Is(err, recording.ErrEmptyRecording) {
		t.Fatalf("StopRecording() error = %v; want ErrEmptyRecording", err)
	}
	msg, ok := env.pub.find(events.ActionUploadError)
	if !ok || msg.Payload["error"] != "No audio was recorded" {
		t.Fatalf("uploadError = %+v, %v; want no-audio message", msg, ok)
	}
}

func TestAutoCommandsTolerateRedundantCalls(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.svc.AutoStop(ctx, "tab-1"); err != nil {
		t.Fatalf("AutoStop() on idle tab = %v; want nil", err)
	}
	if err := env.svc.AutoStart(ctx, "tab-1"); err != nil {
		t.Fatalf("AutoStart() error = %v", err)
	}
	if err := env.svc.AutoStart(ctx, "tab-1"); err != nil {
		t.Fatalf("second AutoStart() = %v; want nil", err)
	}
	if err := env.svc.StartRecording(ctx, "tab-1", ""); !errors.Is(err, recording.ErrAlreadyRecording) {
		t.Fatalf("StartRecording() error = %v; want ErrAlreadyRecording", err)
	}
}

func TestStartRejectsUnknownSource(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.StartRecording(context.Background(), "tab-1", "microphone")
	if !errors.Is(err, recording.ErrValidation) {
		t.Fatalf("StartRecording() error = %v; want ErrValidation", err)
	}
}

type staticTracker []string

func (s staticTracker) EngagedTabs() []string { return s }

func TestListTabsMergesEngagedTabs(t *testing.T) {
	env := newTestEnv(t)
	env.svc.SetTracker(staticTracker{"tab-b"})
	if err := env.svc.StartRecording(context.Background(), "tab-a", ""); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}

	tabs, err := env.svc.ListTabs(context.Background())
	if err != nil {
		t.Fatalf("ListTabs() error = %v", err)
	}
	if len(tabs) != 2 {
		t.Fatalf("ListTabs() len = %d; want 2", len(tabs))
	}
	if tabs[0].TabID != "tab-a" || !tabs[0].Recording() || tabs[0].Engaged {
		t.Fatalf("tabs[0] = %+v; want recording, not engaged tab-a", tabs[0])
	}
	if tabs[1].TabID != "tab-b" || !tabs[1].Engaged {
		t.Fatalf("tabs[1] = %+v; want engaged tab-b", tabs[1])
	}

	env.svc.RemoveTab("tab-a")
	if st, _ := env.svc.RecordingStatus(context.Background(), "tab-a"); st.Recording() {
		t.Fatal("tab-a still recording after RemoveTab")
	}
}

func TestStopAllUploadsActiveRecordings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.record(t, "tab-idle", "x")
	env.svc.Wait()

	for _, tab := range []string{"tab-a", "tab-b"} {
		if err := env.svc.StartRecording(ctx, tab, ""); err != nil {
			t.Fatalf("StartRecording(%s) error = %v", tab, err)
		}
		env.src.last.push("audio-" + tab)
	}

	if got := env.svc.StopAll(ctx); got != 2 {
		t.Fatalf("StopAll() = %d; want 2", got)
	}
	env.svc.Wait()

	if len(env.up.files) != 3 {
		t.Fatalf("uploads = %d; want 3", len(env.up.files))
	}
	for _, tab := range []string{"tab-a", "tab-b"} {
		st, err := env.svc.RecordingStatus(ctx, tab)
		if err != nil {
			t.Fatalf("RecordingStatus(%s) error = %v", tab, err)
		}
		if st.Recording() {
			t.Fatalf("%s still recording after StopAll", tab)
		}
	}
	if got := env.svc.StopAll(ctx); got != 0 {
		t.Fatalf("second StopAll() = %d; want 0", got)
	}
}
