package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/meetnotes/internal/controller"
	"github.com/dgnsrekt/meetnotes/internal/events"
	"github.com/dgnsrekt/meetnotes/internal/messages"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
	"github.com/dgnsrekt/meetnotes/internal/recording"
	"github.com/dgnsrekt/meetnotes/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	messages.Handler
	StopAndGet(ctx context.Context, tabID string) (recording.Artifact, error)
	ListTabs(ctx context.Context) ([]controller.TabStatus, error)
	GetPreferences(ctx context.Context) (prefs.Preferences, error)
	UpdatePreferences(ctx context.Context, p prefs.Patch) (prefs.Preferences, error)
	Health(ctx context.Context) (controller.Health, error)
}

// Ingest accepts a tab's audio chunk stream over a WebSocket upgrade.
type Ingest interface {
	ServeTab(w http.ResponseWriter, r *http.Request, tabID string)
}

type tabIDInput struct {
	TabID string `path:"tab_id" minLength:"1" doc:"Browser tab (CDP target) ID"`
}

type statusOutput struct {
	Body recording.Status
}

// NewServer builds the daemon's HTTP surface. broker and ingest may be nil.
func NewServer(svc Service, broker *events.Broker, ingest Ingest) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Meet Notes Recorder API", version.Version)
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := writeDocs(w); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/docs/streams", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(streamDocsHTML)); err != nil {
			slog.Debug("stream docs response write failed", "error", err)
		}
	})

	if broker != nil {
		router.Get("/api/v1/events", events.SSEHandler(broker))
	}
	if ingest != nil {
		router.Get("/api/v1/tabs/{tab_id}/stream", func(w http.ResponseWriter, r *http.Request) {
			ingest.ServeTab(w, r, chi.URLParam(r, "tab_id"))
		})
	}

	registerRecordingHandlers(api, svc)
	registerMessageHandlers(api, svc)
	registerMiscHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *recording.Error
	if errors.As(err, &coded) {
		switch coded.Code {
		case recording.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case recording.CodeAlreadyRecording, recording.CodeNotRecording:
			return huma.Error409Conflict(coded.Message)
		case recording.CodeEmptyRecording:
			return huma.Error422UnprocessableEntity(coded.Message)
		case recording.CodeNoArtifact:
			return huma.Error404NotFound(coded.Message)
		case recording.CodeSourceUnavailable:
			return huma.Error503ServiceUnavailable(coded.Error())
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
