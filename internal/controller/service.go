package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/artifacts"
	"github.com/dgnsrekt/meetnotes/internal/capture"
	"github.com/dgnsrekt/meetnotes/internal/events"
	"github.com/dgnsrekt/meetnotes/internal/notesapi"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
	"github.com/dgnsrekt/meetnotes/internal/recording"
)

const (
	defaultUploadTimeout = 5 * time.Minute
	noAudioMessage       = "No audio was recorded"
)

// Uploader posts a finished recording to the notes backend.
type Uploader interface {
	UploadAudio(ctx context.Context, file notesapi.AudioFile, opts notesapi.Options) (notesapi.Note, error)
}

// EngagementTracker reports the tabs the watcher considers in a meeting.
type EngagementTracker interface {
	EngagedTabs() []string
}

// Deps wires a Service. Store and Tracker are optional.
type Deps struct {
	Sources       []capture.Source
	DefaultSource string
	Uploader      Uploader
	Prefs         *prefs.Store
	Store         *artifacts.Store
	Publisher     events.Publisher
	UploadTimeout time.Duration
}

// TabStatus is a tab's recorder state plus whether the watcher has it
// engaged.
type TabStatus struct {
	recording.Status
	Engaged bool `json:"engaged"`
}

// Health summarizes the daemon for the health endpoint.
type Health struct {
	Status        string   `json:"status"`
	Tabs          int      `json:"tabs"`
	Recording     int      `json:"recording"`
	Sources       []string `json:"sources"`
	DefaultSource string   `json:"default_source"`
}

// Service runs recordings for every tab and routes finished artifacts to
// the backend or holds them for download.
type Service struct {
	registry      *recording.Registry
	sources       map[string]capture.Source
	defaultSource string
	uploader      Uploader
	prefs         *prefs.Store
	store         *artifacts.Store
	publisher     events.Publisher
	uploadTimeout time.Duration

	trackerMu sync.RWMutex
	tracker   EngagementTracker

	uploads sync.WaitGroup
}

func NewService(deps Deps) *Service {
	s := &Service{
		sources:       make(map[string]capture.Source),
		defaultSource: deps.DefaultSource,
		uploader:      deps.Uploader,
		prefs:         deps.Prefs,
		store:         deps.Store,
		publisher:     deps.Publisher,
		uploadTimeout: deps.UploadTimeout,
	}
	if s.publisher == nil {
		s.publisher = events.Discard{}
	}
	if s.uploadTimeout <= 0 {
		s.uploadTimeout = defaultUploadTimeout
	}
	for _, src := range deps.Sources {
		s.sources[src.Name()] = src
	}
	if s.defaultSource == "" && len(deps.Sources) > 0 {
		s.defaultSource = deps.Sources[0].Name()
	}
	s.registry = recording.NewRegistry(func(tabID string) *recording.Coordinator {
		return recording.NewCoordinator(tabID, s, s.publisher)
	})
	return s
}

// SetTracker attaches the watcher once it exists.
func (s *Service) SetTracker(t EngagementTracker) {
	s.trackerMu.Lock()
	s.tracker = t
	s.trackerMu.Unlock()
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return recording.NewError(recording.CodeValidation, fieldName+" is required", nil)
	}
	return nil
}

func (s *Service) source(name string) (capture.Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultSource
	}
	src, ok := s.sources[name]
	if !ok {
		return nil, recording.NewError(recording.CodeValidation, fmt.Sprintf("unknown audio source %q", name), nil)
	}
	return src, nil
}

// StartRecording begins recording tabID from the named source.
func (s *Service) StartRecording(ctx context.Context, tabID, source string) error {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return err
	}
	src, err := s.source(source)
	if err != nil {
		return err
	}
	return s.registry.Get(strings.TrimSpace(tabID)).Start(ctx, src)
}

// StopRecording ends the recording of tabID. The artifact goes to the
// configured sink before StopRecording returns.
func (s *Service) StopRecording(ctx context.Context, tabID string) error {
	_, err := s.stop(ctx, tabID)
	return err
}

func (s *Service) stop(ctx context.Context, tabID string) (recording.Artifact, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return recording.Artifact{}, err
	}
	tabID = strings.TrimSpace(tabID)
	c, ok := s.registry.Lookup(tabID)
	if !ok {
		return recording.Artifact{}, recording.NewError(recording.CodeNotRecording, "not recording in tab "+tabID, nil)
	}
	a, err := c.Stop(ctx)
	if errors.Is(err, recording.ErrEmptyRecording) {
		s.publisher.Publish(events.Message{
			Action:  events.ActionUploadError,
			TabID:   tabID,
			Payload: map[string]any{"error": noAudioMessage},
		})
	}
	return a, err
}

// StopAndGet stops tabID and returns the assembled artifact.
func (s *Service) StopAndGet(ctx context.Context, tabID string) (recording.Artifact, error) {
	return s.stop(ctx, tabID)
}

// AutoStart is StartRecording from the default source for watcher use; a
// tab that is already recording is not an error.
func (s *Service) AutoStart(ctx context.Context, tabID string) error {
	err := s.StartRecording(ctx, tabID, "")
	if errors.Is(err, recording.ErrAlreadyRecording) {
		return nil
	}
	return err
}

// AutoStop is StopRecording for watcher use; an idle tab is not an error.
func (s *Service) AutoStop(ctx context.Context, tabID string) error {
	err := s.StopRecording(ctx, tabID)
	if errors.Is(err, recording.ErrNotRecording) {
		return nil
	}
	return err
}

// RecordingStatus returns the state of tabID without creating it.
func (s *Service) RecordingStatus(ctx context.Context, tabID string) (recording.Status, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return recording.Status{}, err
	}
	tabID = strings.TrimSpace(tabID)
	if c, ok := s.registry.Lookup(tabID); ok {
		return c.Status(), nil
	}
	st := recording.Status{TabID: tabID, State: recording.StateIdle}
	if s.store != nil {
		if meta, ok := s.store.Latest(tabID); ok {
			st.LastSize = meta.SizeBytes
		}
	}
	return st, nil
}

// DownloadRecording returns the held artifact of tabID, falling back to
// the on-disk copy after a restart.
func (s *Service) DownloadRecording(ctx context.Context, tabID string) (recording.Artifact, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return recording.Artifact{}, err
	}
	tabID = strings.TrimSpace(tabID)
	if c, ok := s.registry.Lookup(tabID); ok {
		if a, ok := c.LastArtifact(); ok {
			return a, nil
		}
	}
	if s.store != nil {
		if latest, ok := s.store.Latest(tabID); ok {
			data, meta, err := s.store.ReadData(latest.ID)
			if err != nil {
				return recording.Artifact{}, fmt.Errorf("read held recording: %w", err)
			}
			return recording.Artifact{
				ID:        meta.ID,
				TabID:     meta.TabID,
				SessionID: meta.SessionID,
				MimeType:  meta.MimeType,
				Data:      data,
				CreatedAt: meta.CreatedAt,
			}, nil
		}
	}
	return recording.Artifact{}, recording.NewError(recording.CodeNoArtifact, "no recording available for tab "+tabID, nil)
}

// ListTabs returns every known tab, including engaged tabs that have not
// recorded yet.
func (s *Service) ListTabs(ctx context.Context) ([]TabStatus, error) {
	engaged := map[string]bool{}
	s.trackerMu.RLock()
	if s.tracker != nil {
		for _, id := range s.tracker.EngagedTabs() {
			engaged[id] = true
		}
	}
	s.trackerMu.RUnlock()

	seen := map[string]bool{}
	out := make([]TabStatus, 0, s.registry.Count()+len(engaged))
	for _, st := range s.registry.Statuses() {
		seen[st.TabID] = true
		out = append(out, TabStatus{Status: st, Engaged: engaged[st.TabID]})
	}
	for id := range engaged {
		if !seen[id] {
			out = append(out, TabStatus{Status: recording.Status{TabID: id, State: recording.StateIdle}, Engaged: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out, nil
}

// RemoveTab tears down a closed tab without producing an artifact.
func (s *Service) RemoveTab(tabID string) {
	if s.registry.Remove(tabID) {
		s.publisher.Publish(events.Message{
			Action:  events.ActionRecordingStopped,
			TabID:   tabID,
			Payload: map[string]any{"discarded": true},
		})
	}
}

func (s *Service) GetPreferences(ctx context.Context) (prefs.Preferences, error) {
	return s.prefs.Get(), nil
}

func (s *Service) UpdatePreferences(ctx context.Context, p prefs.Patch) (prefs.Preferences, error) {
	updated, err := s.prefs.Update(p)
	if err != nil {
		var rec *recording.Error
		if errors.As(err, &rec) {
			return updated, err
		}
		return updated, recording.NewError(recording.CodeValidation, err.Error(), nil)
	}
	return updated, nil
}

func (s *Service) Health(ctx context.Context) (Health, error) {
	h := Health{Status: "ok", Sources: []string{}, DefaultSource: s.defaultSource}
	for _, st := range s.registry.Statuses() {
		h.Tabs++
		if st.Recording() {
			h.Recording++
		}
	}
	for name := range s.sources {
		h.Sources = append(h.Sources, name)
	}
	sort.Strings(h.Sources)
	return h, nil
}

// Deliver is the coordinators' sink. It records the size, keeps a copy on
// disk and either uploads or holds the artifact for download.
func (s *Service) Deliver(ctx context.Context, a recording.Artifact) {
	if err := s.prefs.SetLastArtifactSize(a.Size()); err != nil {
		slog.Warn("failed to persist last artifact size", "tab_id", a.TabID, "error", err)
	}
	if s.store != nil {
		if _, err := s.store.Save(a); err != nil {
			slog.Warn("failed to store artifact", "tab_id", a.TabID, "artifact_id", a.ID, "error", err)
		}
	}

	p := s.prefs.Get()
	if !p.AutoUpload || s.uploader == nil {
		slog.Info("recording held for download", "tab_id", a.TabID, "artifact_id", a.ID, "bytes", a.Size())
		s.publisher.Publish(events.Message{
			Action:  events.ActionRecordingComplete,
			TabID:   a.TabID,
			Payload: map[string]any{"size": a.Size(), "filename": a.Filename(), "artifact_id": a.ID},
		})
		return
	}

	// Options are copied now; later preference changes do not affect this upload.
	opts := p.Options()
	uploadCtx := context.WithoutCancel(ctx)
	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()
		s.upload(uploadCtx, a, opts)
	}()
}

func (s *Service) upload(ctx context.Context, a recording.Artifact, opts notesapi.Options) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	s.publisher.Publish(events.Message{
		Action:  events.ActionUploadStarted,
		TabID:   a.TabID,
		Payload: map[string]any{"size": a.Size(), "artifact_id": a.ID},
	})
	slog.Info("uploading recording", "tab_id", a.TabID, "artifact_id", a.ID, "bytes", a.Size(),
		"detail_level", opts.DetailLevel, "format_type", opts.FormatType)

	note, err := s.uploader.UploadAudio(ctx, notesapi.AudioFile{
		Name:     a.Filename(),
		MimeType: a.MimeType,
		Data:     a.Data,
	}, opts)
	if err != nil {
		slog.Warn("upload failed", "tab_id", a.TabID, "artifact_id", a.ID, "error", err)
		s.publisher.Publish(events.Message{
			Action:  events.ActionUploadError,
			TabID:   a.TabID,
			Payload: map[string]any{"error": uploadErrorMessage(err), "artifact_id": a.ID},
		})
		return
	}

	slog.Info("upload complete", "tab_id", a.TabID, "artifact_id", a.ID, "note_id", note.ID)
	if s.store != nil {
		if err := s.store.MarkUploaded(a.ID, note.ID); err != nil {
			slog.Debug("failed to mark artifact uploaded", "artifact_id", a.ID, "error", err)
		}
	}
	s.publisher.Publish(events.Message{
		Action:  events.ActionUploadComplete,
		TabID:   a.TabID,
		Payload: map[string]any{"note_id": note.ID, "title": note.Title, "note": note},
	})
}

func uploadErrorMessage(err error) string {
	var app *notesapi.ApplicationError
	if errors.As(err, &app) {
		return app.Message
	}
	var srv *notesapi.ServerError
	if errors.As(err, &srv) && srv.Message != "" {
		return srv.Message
	}
	return err.Error()
}

// StopAll stops every recording tab so its artifact reaches the sink. It
// returns the number of recordings stopped.
func (s *Service) StopAll(ctx context.Context) int {
	stopped := 0
	for _, st := range s.registry.Statuses() {
		if !st.Recording() {
			continue
		}
		if _, err := s.stop(ctx, st.TabID); err != nil {
			slog.Warn("stop on shutdown failed", "tab_id", st.TabID, "error", err)
			continue
		}
		stopped++
	}
	return stopped
}

// Wait blocks until in-flight uploads finish.
func (s *Service) Wait() {
	s.uploads.Wait()
}
