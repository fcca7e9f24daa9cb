package messages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/meetnotes/internal/recording"
)

// Inbound actions.
const (
	ActionStartRecording     = "startRecording"
	ActionStopRecording      = "stopRecording"
	ActionGetRecordingStatus = "getRecordingStatus"
	ActionDownloadRecording  = "downloadRecording"
	ActionAutoStartRecording = "autoStartRecording"
	ActionAutoStopRecording  = "autoStopRecording"
)

// Actions lists every inbound action in a stable order.
var Actions = []string{
	ActionStartRecording,
	ActionStopRecording,
	ActionGetRecordingStatus,
	ActionDownloadRecording,
	ActionAutoStartRecording,
	ActionAutoStopRecording,
}

// Request is an action-tagged message from a UI or content surface.
type Request struct {
	Action string `json:"action" enum:"startRecording,stopRecording,getRecordingStatus,downloadRecording,autoStartRecording,autoStopRecording"`
	TabID  string `json:"tabId" minLength:"1"`
	Source string `json:"source,omitempty" doc:"Audio source for startRecording; defaults to the daemon's configured source."`
}

// Reply mirrors the extension's response shape.
type Reply struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	IsRecording *bool  `json:"isRecording,omitempty"`
	Size        *int64 `json:"size,omitempty"`
	Filename    string `json:"filename,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Handler performs the recording operations behind each action.
type Handler interface {
	StartRecording(ctx context.Context, tabID, source string) error
	StopRecording(ctx context.Context, tabID string) error
	RecordingStatus(ctx context.Context, tabID string) (recording.Status, error)
	DownloadRecording(ctx context.Context, tabID string) (recording.Artifact, error)
	AutoStart(ctx context.Context, tabID string) error
	AutoStop(ctx context.Context, tabID string) error
}

// ErrUnknownAction is reported for unrecognized actions.
var ErrUnknownAction = errors.New("unknown action")

// Dispatch runs one request. Failures are reported in the reply, never as
// a Go error, matching how the message channel reports them.
func Dispatch(ctx context.Context, h Handler, req Request) Reply {
	tabID := strings.TrimSpace(req.TabID)
	if tabID == "" {
		return failure(errors.New("tabId is required"))
	}

	switch req.Action {
	case ActionStartRecording:
		return result(h.StartRecording(ctx, tabID, req.Source))
	case ActionStopRecording:
		return result(h.StopRecording(ctx, tabID))
	case ActionAutoStartRecording:
		return result(h.AutoStart(ctx, tabID))
	case ActionAutoStopRecording:
		return result(h.AutoStop(ctx, tabID))
	case ActionGetRecordingStatus:
		st, err := h.RecordingStatus(ctx, tabID)
		if err != nil {
			return failure(err)
		}
		rec := st.Recording()
		return Reply{Success: true, IsRecording: &rec}
	case ActionDownloadRecording:
		a, err := h.DownloadRecording(ctx, tabID)
		if err != nil {
			return failure(err)
		}
		size := a.Size()
		return Reply{Success: true, Size: &size, Filename: a.Filename(), MimeType: a.MimeType}
	}
	return failure(fmt.Errorf("%w: %q", ErrUnknownAction, req.Action))
}

func result(err error) Reply {
	if err != nil {
		return failure(err)
	}
	return Reply{Success: true}
}

func failure(err error) Reply {
	slog.Debug("message failed", "error", err)
	msg := err.Error()
	var rec *recording.Error
	if errors.As(err, &rec) {
		msg = rec.Message
	}
	return Reply{Success: false, Error: msg}
}
