package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/meetnotes/internal/controller"
	"github.com/dgnsrekt/meetnotes/internal/messages"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
)

func registerMessageHandlers(api huma.API, svc Service) {
	type messageOutput struct {
		Body messages.Reply
	}
	huma.Register(api, huma.Operation{OperationID: "send-message", Method: http.MethodPost, Path: "/api/v1/messages", Summary: "Dispatch an action-tagged message", Description: "Failures are reported in the reply body with success=false, not as HTTP errors.", Tags: []string{"Messages"}},
		func(ctx context.Context, input *struct {
			Body messages.Request
		}) (*messageOutput, error) {
			return &messageOutput{Body: messages.Dispatch(ctx, svc, input.Body)}, nil
		})

	type preferencesOutput struct {
		Body prefs.Preferences
	}
	huma.Register(api, huma.Operation{OperationID: "get-preferences", Method: http.MethodGet, Path: "/api/v1/preferences", Summary: "Get preferences", Tags: []string{"Preferences"}},
		func(ctx context.Context, input *struct{}) (*preferencesOutput, error) {
			p, err := svc.GetPreferences(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &preferencesOutput{Body: p}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "update-preferences", Method: http.MethodPut, Path: "/api/v1/preferences", Summary: "Update preferences", Description: "Omitted fields are left unchanged. Detail levels: brief, medium, detailed (low/high accepted). Formats: bullet, paragraph (narrative accepted).", Tags: []string{"Preferences"}},
		func(ctx context.Context, input *struct {
			Body prefs.Patch
		}) (*preferencesOutput, error) {
			p, err := svc.UpdatePreferences(ctx, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			return &preferencesOutput{Body: p}, nil
		})
}

func registerMiscHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body controller.Health
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			h, err := svc.Health(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &healthOutput{Body: h}, nil
		})
}
