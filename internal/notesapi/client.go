package notesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultBaseURL = "http://localhost:5000"

	audioPath = "/api/generate-notes/audio"
	videoPath = "/api/generate-notes/youtube"
	notesPath = "/api/notes"

	maxErrorSnippet = 200
)

// Note is a generated note as stored by the backend.
type Note struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AudioFile is the payload of one upload.
type AudioFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Client talks to the notes-generation backend. Each call issues exactly
// one request; timeouts come from HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{BaseURL: baseURL, HTTP: httpClient}
}

type generateResponse struct {
	Success bool   `json:"success"`
	Note    *Note  `json:"note"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UploadAudio posts the recording as multipart form data and returns the
// generated note.
func (c *Client) UploadAudio(ctx context.Context, file AudioFile, opts Options) (Note, error) {
	opts = opts.normalized()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, file.Name))
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return Note{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return Note{}, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.WriteField("detail_level", string(opts.DetailLevel)); err != nil {
		return Note{}, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.WriteField("format_type", string(opts.FormatType)); err != nil {
		return Note{}, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Note{}, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(audioPath), &body)
	if err != nil {
		return Note{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.generate(req, "upload audio")
}

// GenerateFromVideo asks the backend to build notes from a video URL.
func (c *Client) GenerateFromVideo(ctx context.Context, videoURL string, opts Options) (Note, error) {
	if strings.TrimSpace(videoURL) == "" {
		return Note{}, fmt.Errorf("video url is required")
	}
	opts = opts.normalized()
	payload, err := json.Marshal(map[string]string{
		"url":          videoURL,
		"detail_level": string(opts.DetailLevel),
		"format_type":  string(opts.FormatType),
	})
	if err != nil {
		return Note{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(videoPath), bytes.NewReader(payload))
	if err != nil {
		return Note{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.generate(req, "generate from video")
}

func (c *Client) generate(req *http.Request, op string) (Note, error) {
	var out generateResponse
	if err := c.do(req, op, &out); err != nil {
		return Note{}, err
	}
	if !out.Success || out.Note == nil {
		return Note{}, &ApplicationError{Message: firstNonEmpty(out.Error, out.Message, defaultFailureMessage)}
	}
	return *out.Note, nil
}

// ListNotes returns all stored notes, newest first.
func (c *Client) ListNotes(ctx context.Context) ([]Note, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(notesPath), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Notes []Note `json:"notes"`
	}
	if err := c.do(req, "list notes", &out); err != nil {
		return nil, err
	}
	notes := out.Notes
	if notes == nil {
		notes = []Note{}
	}
	// Timestamps are ISO-8601 local times; lexical order is chronological.
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Timestamp > notes[j].Timestamp })
	return notes, nil
}

// GetNote fetches one note. A missing note is a *ServerError with status 404.
func (c *Client) GetNote(ctx context.Context, id string) (Note, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Note{}, fmt.Errorf("note id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(notesPath+"/"+url.PathEscape(id)), nil)
	if err != nil {
		return Note{}, err
	}
	var out struct {
		Note *Note `json:"note"`
	}
	if err := c.do(req, "get note", &out); err != nil {
		return Note{}, err
	}
	if out.Note == nil {
		return Note{}, &ServerError{Status: http.StatusNotFound, Message: "note not found"}
	}
	return *out.Note, nil
}

// Health reports whether the backend answers its health probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/health"), nil)
	if err != nil {
		return err
	}
	var out struct {
		Status string `json:"status"`
	}
	return c.do(req, "health", &out)
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServerError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ServerError{Status: resp.StatusCode, Message: "invalid response body: " + snippet(raw)}
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + path
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// errorMessage prefers the error or message field of a JSON body and
// falls back to the start of the raw body.
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := firstNonEmpty(body.Error, body.Message); msg != "" {
			return msg
		}
	}
	return snippet(raw)
}

func snippet(raw []byte) string {
	if len(raw) <= maxErrorSnippet {
		return strings.TrimSpace(string(raw))
	}
	cut := raw[:maxErrorSnippet]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(string(cut))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
