// Package subscriber persists notification subscribers and their selected
// group, behind one interface with a file-backed and a relational backend.
package subscriber

import (
	"context"
	"log"

	"github.com/msu-timetable/backend/internal/storage"
)

// Store is the subscriber persistence contract. Both backends serialize
// concurrent access internally; callers never see which one is active.
type Store interface {
	// ListSubscribers returns the chat ids subscribed to the group.
	ListSubscribers(ctx context.Context, groupID string) ([]int64, error)
	// Add registers a subscriber; it reports whether the chat was new.
	Add(ctx context.Context, chatID int64) (bool, error)
	// Remove deletes a subscriber; it reports whether the chat existed.
	Remove(ctx context.Context, chatID int64) (bool, error)
	// SetSelectedGroup binds the chat to a group for lookups and broadcasts.
	SetSelectedGroup(ctx context.Context, chatID int64, groupID string) error
	// SelectedGroup returns the chat's group, or "" when none is set.
	SelectedGroup(ctx context.Context, chatID int64) (string, error)
}

// Open resolves the backend once at startup: the relational store when a
// database path is configured and reachable, otherwise the file-backed
// store. The fallback is logged once and never retried mid-run.
func Open(databasePath, persistDir string) (Store, error) {
	if databasePath != "" {
		db, err := storage.NewDB(databasePath)
		if err == nil {
			if err = storage.RunMigrations(db); err == nil {
				return NewSQLStore(db), nil
			}
			db.Close()
		}
		log.Printf("Subscriber database unavailable (%v); falling back to file store", err)
	}
	return NewFileStore(persistDir)
}
