package messages

import (
	"context"
	"testing"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/recording"
	"github.com/google/go-cmp/cmp"
)

type stubHandler struct {
	calls    []string
	err      error
	status   recording.Status
	artifact recording.Artifact
}

func (s *stubHandler) StartRecording(_ context.Context, tabID, source string) error {
	s.calls = append(s.calls, "start:"+tabID+":"+source)
	return s.err
}

func (s *stubHandler) StopRecording(_ context.Context, tabID string) error {
	s.calls = append(s.calls, "stop:"+tabID)
	return s.err
}

func (s *stubHandler) RecordingStatus(_ context.Context, tabID string) (recording.Status, error) {
	s.calls = append(s.calls, "status:"+tabID)
	return s.status, s.err
}

func (s *stubHandler) DownloadRecording(_ context.Context, tabID string) (recording.Artifact, error) {
	s.calls = append(s.calls, "download:"+tabID)
	return s.artifact, s.err
}

func (s *stubHandler) AutoStart(_ context.Context, tabID string) error {
	s.calls = append(s.calls, "autostart:"+tabID)
	return s.err
}

func (s *stubHandler) AutoStop(_ context.Context, tabID string) error {
	s.calls = append(s.calls, "autostop:"+tabID)
	return s.err
}

func TestDispatchRoutesActions(t *testing.T) {
	h := &stubHandler{}
	ctx := context.Background()

	for _, action := range Actions {
		if reply := Dispatch(ctx, h, Request{Action: action, TabID: "t1", Source: "ffmpeg"}); !reply.Success {
			t.Fatalf("Dispatch(%s) = %+v; want success", action, reply)
		}
	}

	want := []string{"start:t1:ffmpeg", "stop:t1", "status:t1", "download:t1", "autostart:t1", "autostop:t1"}
	if diff := cmp.Diff(want, h.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchStatusReportsRecording(t *testing.T) {
	h := &stubHandler{status: recording.Status{State: recording.StateRecording}}

	reply := Dispatch(context.Background(), h, Request{Action: ActionGetRecordingStatus, TabID: "t1"})
	if reply.IsRecording == nil || !*reply.IsRecording {
		t.Fatalf("IsRecording = %v; want true", reply.IsRecording)
	}
}

func TestDispatchDownloadReportsSizeAndFilename(t *testing.T) {
	h := &stubHandler{artifact: recording.Artifact{
		MimeType:  "audio/webm",
		Data:      []byte("12345"),
		CreatedAt: time.UnixMilli(1700000000000),
	}}

	reply := Dispatch(context.Background(), h, Request{Action: ActionDownloadRecording, TabID: "t1"})
	if !reply.Success || reply.Size == nil || *reply.Size != 5 {
		t.Fatalf("reply = %+v; want success with size 5", reply)
	}
	if reply.Filename != "meet-recording-1700000000000.webm" {
		t.Fatalf("Filename = %q; want meet-recording-1700000000000.webm", reply.Filename)
	}
}

func TestDispatchReportsCodedErrorMessage(t *testing.T) {
	h := &stubHandler{err: &recording.Error{Code: recording.CodeAlreadyRecording, Message: "already recording in tab t1"}}

	reply := Dispatch(context.Background(), h, Request{Action: ActionStartRecording, TabID: "t1"})
	if reply.Success {
		t.Fatal("Success = true; want false")
	}
	if reply.Error != "already recording in tab t1" {
		t.Fatalf("Error = %q; want coded message", reply.Error)
	}
}

func TestDispatchRejectsUnknownActionAndMissingTab(t *testing.T) {
	h := &stubHandler{}

	if reply := Dispatch(context.Background(), h, Request{Action: "pauseRecording", TabID: "t1"}); reply.Success {
		t.Fatal("unknown action succeeded")
	}
	if reply := Dispatch(context.Background(), h, Request{Action: ActionStopRecording, TabID: "  "}); reply.Success || reply.Error != "tabId is required" {
		t.Fatalf("reply = %+v; want tabId error", reply)
	}
	if len(h.calls) != 0 {
		t.Fatalf("calls = %v; want none", h.calls)
	}
}
