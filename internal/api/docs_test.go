package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/meetnotes/internal/controller"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
	"github.com/dgnsrekt/meetnotes/internal/recording"
)

type stubService struct {
	startErr error
	stopErr  error
	status   recording.Status
	artifact recording.Artifact
	prefs    prefs.Preferences
	patched  *prefs.Patch
	source   string
}

func (s *stubService) StartRecording(ctx context.Context, tabID, source string) error {
	s.source = source
	return s.startErr
}
func (s *stubService) StopRecording(ctx context.Context, tabID string) error { return s.stopErr }
func (s *stubService) RecordingStatus(ctx context.Context, tabID string) (recording.Status, error) {
	st := s.status
	st.TabID = tabID
	return st, nil
}
func (s *stubService) DownloadRecording(ctx context.Context, tabID string) (recording.Artifact, error) {
	if s.artifact.Data == nil {
		return recording.Artifact{}, recording.NewError(recording.CodeNoArtifact, "no recording available for tab "+tabID, nil)
	}
	return s.artifact, nil
}
func (s *stubService) AutoStart(ctx context.Context, tabID string) error { return nil }
func (s *stubService) AutoStop(ctx context.Context, tabID string) error  { return nil }
func (s *stubService) StopAndGet(ctx context.Context, tabID string) (recording.Artifact, error) {
	return s.artifact, s.stopErr
}
func (s *stubService) ListTabs(ctx context.Context) ([]controller.TabStatus, error) {
	return nil, nil
}
func (s *stubService) GetPreferences(ctx context.Context) (prefs.Preferences, error) {
	return s.prefs, nil
}
func (s *stubService) UpdatePreferences(ctx context.Context, p prefs.Patch) (prefs.Preferences, error) {
	s.patched = &p
	return s.prefs, nil
}
func (s *stubService) Health(ctx context.Context) (controller.Health, error) {
	return controller.Health{Status: "ok"}, nil
}

func TestDocsDarkMode(t *testing.T) {
	h := NewServer(&stubService{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data-theme="dark"`) {
		t.Fatalf("docs missing dark theme marker")
	}
	if !strings.Contains(body, `/docs/streams`) {
		t.Fatalf("docs missing stream docs link")
	}
	for _, action := range []string{"autoStartRecording", "downloadRecording", "uploadComplete"} {
		if !strings.Contains(body, "<code>"+action+"</code>") {
			t.Fatalf("docs missing action %s", action)
		}
	}
}

func TestStreamDocsServed(t *testing.T) {
	h := NewServer(&stubService{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/docs/streams", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "/api/v1/tabs/{tab_id}/stream") {
		t.Fatalf("stream docs missing ingest endpoint")
	}
}
