package artifacts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/recording"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Meta describes a held recording.
type Meta struct {
	ID        string    `json:"id"`
	TabID     string    `json:"tab_id"`
	SessionID string    `json:"session_id"`
	MimeType  string    `json:"mime_type"`
	Extension string    `json:"extension"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Uploaded  bool      `json:"uploaded"`
	NoteID    string    `json:"note_id,omitempty"`
}

// Store keeps the latest recording of each tab on disk so it survives a
// daemon restart and can be downloaded later.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) validateID(id string) error {
	if !uuidRe.MatchString(id) {
		return fmt.Errorf("invalid artifact id: %q", id)
	}
	return nil
}

func (s *Store) dataPath(meta Meta) string {
	return filepath.Join(s.dir, meta.ID+"."+meta.Extension)
}

func (s *Store) metaPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the audio file and its metadata sidecar, replacing any
// earlier recording of the same tab.
func (s *Store) Save(a recording.Artifact) (Meta, error) {
	meta := Meta{
		ID:        a.ID,
		TabID:     a.TabID,
		SessionID: a.SessionID,
		MimeType:  a.MimeType,
		Extension: a.Extension(),
		Filename:  a.Filename(),
		SizeBytes: a.Size(),
		CreatedAt: a.CreatedAt,
	}
	if err := s.validateID(meta.ID); err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.listLocked()

	if err := os.WriteFile(s.dataPath(meta), a.Data, 0o644); err != nil {
		return Meta{}, fmt.Errorf("artifact store: write audio: %w", err)
	}
	if err := s.writeMetaLocked(meta); err != nil {
		_ = os.Remove(s.dataPath(meta))
		return Meta{}, err
	}

	for _, old := range previous {
		if old.TabID == meta.TabID && old.ID != meta.ID {
			s.removeLocked(old)
		}
	}
	return meta, nil
}

// MarkUploaded records the note generated from an artifact.
func (s *Store) MarkUploaded(id, noteID string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}
	meta.Uploaded = true
	meta.NoteID = noteID

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeMetaLocked(meta)
}

func (s *Store) writeMetaLocked(meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact store: marshal meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), data, 0o644); err != nil {
		return fmt.Errorf("artifact store: write meta: %w", err)
	}
	return nil
}

// Get reads artifact metadata by ID.
func (s *Store) Get(id string) (Meta, error) {
	if err := s.validateID(id); err != nil {
		return Meta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, fmt.Errorf("artifact not found: %s", id)
		}
		return Meta{}, fmt.Errorf("artifact store: read meta: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("artifact store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns all held artifacts, newest first.
func (s *Store) List() ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(), nil
}

func (s *Store) listLocked() []Meta {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		slog.Debug("artifact glob failed", "dir", s.dir, "error", err)
		return nil
	}

	metas := make([]Meta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas
}

// Latest returns the held artifact of tabID.
func (s *Store) Latest(tabID string) (Meta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, meta := range s.listLocked() {
		if meta.TabID == tabID {
			return meta, true
		}
	}
	return Meta{}, false
}

// ReadData reads the raw audio bytes.
func (s *Store) ReadData(id string) ([]byte, Meta, error) {
	meta, err := s.Get(id)
	if err != nil {
		return nil, Meta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.dataPath(meta))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Meta{}, fmt.Errorf("artifact audio not found: %s", id)
		}
		return nil, Meta{}, fmt.Errorf("artifact store: read audio: %w", err)
	}
	return data, meta, nil
}

// Delete removes both the audio and metadata files.
func (s *Store) Delete(id string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(meta)
	return nil
}

func (s *Store) removeLocked(meta Meta) {
	if err := os.Remove(s.dataPath(meta)); err != nil {
		slog.Debug("artifact audio cleanup failed", "id", meta.ID, "error", err)
	}
	if err := os.Remove(s.metaPath(meta.ID)); err != nil {
		slog.Debug("artifact meta cleanup failed", "id", meta.ID, "error", err)
	}
}
