package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgnsrekt/meetnotes/internal/notesapi"
)

// Preferences is the persisted key/value state shared by the daemon and
// its clients.
type Preferences struct {
	DetailLevel      notesapi.DetailLevel `json:"detail_level"`
	FormatType       notesapi.FormatType  `json:"format_type"`
	AutoUpload       bool                 `json:"auto_upload"`
	LastArtifactSize int64                `json:"last_artifact_size"`
}

// Options returns the upload options carried by p.
func (p Preferences) Options() notesapi.Options {
	return notesapi.Options{DetailLevel: p.DetailLevel, FormatType: p.FormatType}
}

// Defaults are used for keys missing from the file.
func Defaults() Preferences {
	o := notesapi.DefaultOptions()
	return Preferences{DetailLevel: o.DetailLevel, FormatType: o.FormatType, AutoUpload: true}
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	DetailLevel *string `json:"detail_level,omitempty"`
	FormatType  *string `json:"format_type,omitempty"`
	AutoUpload  *bool   `json:"auto_upload,omitempty"`
}

// Store keeps preferences in a single JSON file.
type Store struct {
	path string
	mu   sync.Mutex
	cur  Preferences
}

// Open loads path, creating its directory. A missing file yields defaults.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prefs store: mkdir: %w", err)
	}
	s := &Store{path: path, cur: Defaults()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("prefs store: read: %w", err)
	}

	// Decoding over the defaults keeps them for absent keys.
	loaded := Defaults()
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("preferences file unreadable, using defaults", "path", path, "error", err)
		return s, nil
	}
	opts, err := notesapi.ParseOptions(string(loaded.DetailLevel), string(loaded.FormatType))
	if err != nil {
		slog.Warn("preferences hold invalid options, using defaults", "path", path, "error", err)
		opts = notesapi.DefaultOptions()
	}
	loaded.DetailLevel, loaded.FormatType = opts.DetailLevel, opts.FormatType
	s.cur = loaded
	return s, nil
}

func (s *Store) Get() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Update validates and applies p, then persists the result.
func (s *Store) Update(p Patch) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	if p.DetailLevel != nil {
		d, err := notesapi.ParseDetailLevel(*p.DetailLevel)
		if err != nil {
			return s.cur, err
		}
		next.DetailLevel = d
	}
	if p.FormatType != nil {
		f, err := notesapi.ParseFormatType(*p.FormatType)
		if err != nil {
			return s.cur, err
		}
		next.FormatType = f
	}
	if p.AutoUpload != nil {
		next.AutoUpload = *p.AutoUpload
	}
	if err := s.save(next); err != nil {
		return s.cur, err
	}
	s.cur = next
	return next, nil
}

// SetLastArtifactSize records the size of the most recent recording.
func (s *Store) SetLastArtifactSize(size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cur
	next.LastArtifactSize = size
	if err := s.save(next); err != nil {
		return err
	}
	s.cur = next
	return nil
}

// save writes through a temp file so a crash never leaves a torn file.
func (s *Store) save(p Preferences) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs store: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("prefs store: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("prefs store: rename: %w", err)
	}
	return nil
}
