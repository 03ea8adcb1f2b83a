// Package snapshot persists the last-known event set per group.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/msu-timetable/backend/internal/schedule"
)

// Store reads and writes per-group snapshots under a root directory, one
// JSON file per group. Saves are wholesale replacements via a temp file
// and rename, so a concurrent reader never observes a partial snapshot
// and a crash before save simply leaves the previous baseline in place.
type Store struct {
	root string
}

// NewStore creates a snapshot store rooted at the given directory.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) path(groupID string) string {
	return filepath.Join(s.root, groupID, "snapshot.json")
}

// Load returns the last saved snapshot for the group, or nil on first run.
func (s *Store) Load(groupID string) (*schedule.Snapshot, error) {
	data, err := os.ReadFile(s.path(groupID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap schedule.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Save durably replaces the group's snapshot.
func (s *Store) Save(groupID string, snap *schedule.Snapshot) error {
	path := s.path(groupID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
