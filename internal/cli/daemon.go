package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgnsrekt/meetnotes/internal/controller"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
	"github.com/dgnsrekt/meetnotes/internal/recording"
)

// DaemonClient calls the recorder daemon's control API.
type DaemonClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewDaemonClient(baseURL string, httpClient *http.Client) *DaemonClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DaemonClient{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// StoppedRecording is the daemon's reply to a stop request.
type StoppedRecording struct {
	TabID    string `json:"tab_id"`
	Status   string `json:"status"`
	Artifact struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
		URL      string `json:"url"`
	} `json:"artifact"`
}

// Download is a fetched artifact.
type Download struct {
	Filename string
	MimeType string
	Data     []byte
}

// problem is the error body huma writes.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (c *DaemonClient) StartRecording(ctx context.Context, tabID, source string) (recording.Status, error) {
	var st recording.Status
	body := map[string]string{}
	if source != "" {
		body["source"] = source
	}
	err := c.call(ctx, http.MethodPost, tabPath(tabID, "recording"), body, &st)
	return st, err
}

func (c *DaemonClient) StopRecording(ctx context.Context, tabID string) (StoppedRecording, error) {
	var out StoppedRecording
	err := c.call(ctx, http.MethodDelete, tabPath(tabID, "recording"), nil, &out)
	return out, err
}

func (c *DaemonClient) RecordingStatus(ctx context.Context, tabID string) (recording.Status, error) {
	var st recording.Status
	err := c.call(ctx, http.MethodGet, tabPath(tabID, "recording"), nil, &st)
	return st, err
}

func (c *DaemonClient) ListTabs(ctx context.Context) ([]controller.TabStatus, error) {
	var out struct {
		Tabs []controller.TabStatus `json:"tabs"`
	}
	err := c.call(ctx, http.MethodGet, "/api/v1/tabs", nil, &out)
	return out.Tabs, err
}

func (c *DaemonClient) DownloadRecording(ctx context.Context, tabID string) (Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+tabPath(tabID, "artifact"), nil)
	if err != nil {
		return Download{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Download{}, fmt.Errorf("daemon unreachable at %s: %w", c.BaseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Download{}, fmt.Errorf("read artifact: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Download{}, daemonError(resp.StatusCode, data)
	}
	d := Download{MimeType: resp.Header.Get("Content-Type"), Data: data}
	d.Filename = filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	return d, nil
}

func (c *DaemonClient) GetPreferences(ctx context.Context) (prefs.Preferences, error) {
	var p prefs.Preferences
	err := c.call(ctx, http.MethodGet, "/api/v1/preferences", nil, &p)
	return p, err
}

func (c *DaemonClient) UpdatePreferences(ctx context.Context, patch prefs.Patch) (prefs.Preferences, error) {
	var p prefs.Preferences
	err := c.call(ctx, http.MethodPut, "/api/v1/preferences", patch, &p)
	return p, err
}

func (c *DaemonClient) Health(ctx context.Context) (controller.Health, error) {
	var h controller.Health
	err := c.call(ctx, http.MethodGet, "/api/health", nil, &h)
	return h, err
}

func (c *DaemonClient) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.BaseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read daemon response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return daemonError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func daemonError(status int, raw []byte) error {
	var p problem
	if err := json.Unmarshal(raw, &p); err == nil && p.Detail != "" {
		return fmt.Errorf("daemon: %s (%d)", p.Detail, status)
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("daemon: %s (%d)", msg, status)
}

func tabPath(tabID, leaf string) string {
	return "/api/v1/tabs/" + url.PathEscape(tabID) + "/" + leaf
}

func filenameFromDisposition(v string) string {
	const marker = "filename="
	i := strings.Index(v, marker)
	if i < 0 {
		return ""
	}
	return strings.Trim(v[i+len(marker):], `"`)
}
