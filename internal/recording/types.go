package recording

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/capture"
)

// State of a tab's recorder. There is no paused state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// Status is a point-in-time view of a coordinator.
type Status struct {
	TabID      string    `json:"tab_id"`
	State      State     `json:"state"`
	SessionID  string    `json:"session_id,omitempty"`
	Source     string    `json:"source,omitempty"`
	MimeType   string    `json:"mime_type,omitempty"`
	Chunks     int       `json:"chunks"`
	Bytes      int64     `json:"bytes"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	LastSize   int64     `json:"last_artifact_size,omitempty"`
	LateChunks int       `json:"late_chunks,omitempty"`
}

// Recording reports whether a session is active.
func (s Status) Recording() bool { return s.State == StateRecording }

// Artifact is one finished recording. Data must not be modified.
type Artifact struct {
	ID        string    `json:"id"`
	TabID     string    `json:"tab_id"`
	SessionID string    `json:"session_id"`
	MimeType  string    `json:"mime_type"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Size returns the artifact length in bytes.
func (a Artifact) Size() int64 { return int64(len(a.Data)) }

// Extension returns the file extension matching the encoded mime type.
func (a Artifact) Extension() string { return capture.ExtensionFor(a.MimeType) }

// Filename is the name used for uploads and downloads.
func (a Artifact) Filename() string {
	return fmt.Sprintf("meet-recording-%d.%s", a.CreatedAt.UnixMilli(), a.Extension())
}

// session is the active recording of one tab. It is only touched under the
// owning coordinator's lock.
type session struct {
	id        string
	source    string
	mimeType  string
	startedAt time.Time
	capture   capture.Capture
	chunks    [][]byte
	bytes     int64
}
