package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/meetnotes/internal/controller"
	"github.com/dgnsrekt/meetnotes/internal/recording"
)

type artifactInfo struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	MimeType  string `json:"mime_type"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	URL       string `json:"url"`
}

func newArtifactInfo(a recording.Artifact) artifactInfo {
	return artifactInfo{
		ID:        a.ID,
		SessionID: a.SessionID,
		MimeType:  a.MimeType,
		Filename:  a.Filename(),
		Size:      a.Size(),
		URL:       "/api/v1/tabs/" + a.TabID + "/artifact",
	}
}

type startInput struct {
	tabIDInput
	Body struct {
		Source string `json:"source,omitempty" doc:"Audio source name (ffmpeg or stream); omit for the daemon default" example:"stream"`
	} `required:"false"`
}

func registerRecordingHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "start-recording", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/recording", Summary: "Start recording a tab", Tags: []string{"Recording"}},
		func(ctx context.Context, input *startInput) (*statusOutput, error) {
			if err := svc.StartRecording(ctx, input.TabID, input.Body.Source); err != nil {
				return nil, mapErr(err)
			}
			st, err := svc.RecordingStatus(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &statusOutput{Body: st}, nil
		})

	type stopOutput struct {
		Body struct {
			TabID    string       `json:"tab_id"`
			Status   string       `json:"status"`
			Artifact artifactInfo `json:"artifact"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stop-recording", Method: http.MethodDelete, Path: "/api/v1/tabs/{tab_id}/recording", Summary: "Stop recording a tab", Description: "Assembles the recording and hands it to the upload or hold-for-download sink.", Tags: []string{"Recording"}},
		func(ctx context.Context, input *tabIDInput) (*stopOutput, error) {
			a, err := svc.StopAndGet(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &stopOutput{}
			out.Body.TabID = input.TabID
			out.Body.Status = "stopped"
			out.Body.Artifact = newArtifactInfo(a)
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-recording-status", Method: http.MethodGet, Path: "/api/v1/tabs/{tab_id}/recording", Summary: "Get recording status", Tags: []string{"Recording"}},
		func(ctx context.Context, input *tabIDInput) (*statusOutput, error) {
			st, err := svc.RecordingStatus(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &statusOutput{Body: st}, nil
		})

	type artifactOutput struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}
	huma.Register(api, huma.Operation{OperationID: "download-artifact", Method: http.MethodGet, Path: "/api/v1/tabs/{tab_id}/artifact", Summary: "Download the last recording", Tags: []string{"Recording"}},
		func(ctx context.Context, input *tabIDInput) (*artifactOutput, error) {
			a, err := svc.DownloadRecording(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &artifactOutput{
				ContentType:        a.MimeType,
				ContentDisposition: `attachment; filename="` + a.Filename() + `"`,
				Body:               a.Data,
			}, nil
		})

	type listTabsOutput struct {
		Body struct {
			Tabs []controller.TabStatus `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List tabs and recorder states", Tags: []string{"Recording"}},
		func(ctx context.Context, input *struct{}) (*listTabsOutput, error) {
			tabs, err := svc.ListTabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listTabsOutput{}
			out.Body.Tabs = tabs
			if out.Body.Tabs == nil {
				out.Body.Tabs = []controller.TabStatus{}
			}
			return out, nil
		})
}
