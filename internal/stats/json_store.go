package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// JSONStore keeps every entry in memory and rewrites one JSON file on each
// Put.
type JSONStore struct {
	fs      afero.Fs
	path    string
	entries map[string]Entry
	mu      sync.RWMutex
}

type jsonFile struct {
	Entries []Entry `json:"entries"`
}

// OpenJSONStore loads path, or starts empty if it does not exist yet.
func OpenJSONStore(fs afero.Fs, path string) (*JSONStore, error) {
	s := &JSONStore{fs: fs, path: path, entries: make(map[string]Entry)}

	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return s, nil // First run
	}
	if err != nil {
		return nil, fmt.Errorf("read stats file: %w", err)
	}

	var file jsonFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal stats: %w", err)
	}
	s.entries = lo.KeyBy(file.Entries, func(e Entry) string { return e.TrackID })
	return s, nil
}

func (s *JSONStore) Get(_ context.Context, trackID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[trackID]
	return e, ok, nil
}

func (s *JSONStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[e.TrackID]
	s.entries[e.TrackID] = e
	if err := s.save(); err != nil {
		if existed {
			s.entries[e.TrackID] = prev
		} else {
			delete(s.entries, e.TrackID)
		}
		return err
	}
	return nil
}

func (s *JSONStore) All(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Values(s.entries), nil
}

func (s *JSONStore) Close() error { return nil }

// save writes the file. Caller holds the lock.
func (s *JSONStore) save() error {
	file := jsonFile{Entries: TopPlayed(lo.Values(s.entries), -1)}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("write stats file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace stats file: %w", err)
	}
	return nil
}
