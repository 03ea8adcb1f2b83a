package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// fileState is the on-disk shape of the file-backed store.
type fileState struct {
	Chats      []int64           `json:"chats"`
	ChatGroups map[string]string `json:"chat_groups"`
	CreatedAt  map[string]string `json:"created_at"`
}

// FileStore keeps subscribers in a single JSON file. Every mutation is
// written wholesale via temp-file-plus-rename; a mutex serializes access.
type FileStore struct {
	path string

	mu    sync.Mutex
	state fileState
}

// NewFileStore loads (or initializes) the subscriber file under dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating subscriber dir: %w", err)
	}

	s := &FileStore{path: filepath.Join(dir, "subscribers.json")}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.state = fileState{ChatGroups: map[string]string{}, CreatedAt: map[string]string{}}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading subscribers: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("decoding subscribers: %w", err)
	}
	if s.state.ChatGroups == nil {
		s.state.ChatGroups = map[string]string{}
	}
	if s.state.CreatedAt == nil {
		s.state.CreatedAt = map[string]string{}
	}
	return s, nil
}

func (s *FileStore) save() error {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding subscribers: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing subscribers: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// ListSubscribers returns chats subscribed to the group, sorted for
// deterministic broadcast order.
func (s *FileStore) ListSubscribers(_ context.Context, groupID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []int64
	for _, chat := range s.state.Chats {
		if s.state.ChatGroups[strconv.FormatInt(chat, 10)] == groupID {
			out = append(out, chat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Add registers a subscriber.
func (s *FileStore) Add(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.state.Chats {
		if c == chatID {
			return false, nil
		}
	}
	s.state.Chats = append(s.state.Chats, chatID)
	s.state.CreatedAt[strconv.FormatInt(chatID, 10)] = time.Now().UTC().Format(time.RFC3339)
	return true, s.save()
}

// Remove deletes a subscriber.
func (s *FileStore) Remove(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.state.Chats {
		if c == chatID {
			s.state.Chats = append(s.state.Chats[:i], s.state.Chats[i+1:]...)
			delete(s.state.CreatedAt, strconv.FormatInt(chatID, 10))
			return true, s.save()
		}
	}
	return false, nil
}

// SetSelectedGroup binds the chat to a group.
func (s *FileStore) SetSelectedGroup(_ context.Context, chatID int64, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.ChatGroups[strconv.FormatInt(chatID, 10)] = groupID
	return s.save()
}

// SelectedGroup returns the chat's group, or "" when none is set.
func (s *FileStore) SelectedGroup(_ context.Context, chatID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.ChatGroups[strconv.FormatInt(chatID, 10)], nil
}
