package subscriber

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msu-timetable/backend/internal/storage"
)

// SQLStore is the relational backend over SQLite.
type SQLStore struct {
	db *storage.DB
}

// NewSQLStore creates a store over an open, migrated database.
func NewSQLStore(db *storage.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB exposes the underlying connection for health probes.
func (s *SQLStore) DB() *storage.DB { return s.db }

// ListSubscribers returns chats subscribed to the group, sorted by chat id.
func (s *SQLStore) ListSubscribers(ctx context.Context, groupID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.chat_id
		FROM subscribers s
		JOIN chat_groups g ON g.chat_id = s.chat_id
		WHERE g.group_id = ?
		ORDER BY s.chat_id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var chat int64
		if err := rows.Scan(&chat); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		out = append(out, chat)
	}
	return out, rows.Err()
}

// Add registers a subscriber.
func (s *SQLStore) Add(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (chat_id) VALUES (?)
		ON CONFLICT (chat_id) DO NOTHING
	`, chatID)
	if err != nil {
		return false, fmt.Errorf("inserting subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Remove deletes a subscriber.
func (s *SQLStore) Remove(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, fmt.Errorf("deleting subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetSelectedGroup binds the chat to a group.
func (s *SQLStore) SetSelectedGroup(ctx context.Context, chatID int64, groupID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_groups (chat_id, group_id) VALUES (?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET group_id = excluded.group_id, updated_at = CURRENT_TIMESTAMP
	`, chatID, groupID)
	if err != nil {
		return fmt.Errorf("saving group selection: %w", err)
	}
	return nil
}

// SelectedGroup returns the chat's group, or "" when none is set.
func (s *SQLStore) SelectedGroup(ctx context.Context, chatID int64) (string, error) {
	var groupID string
	err := s.db.QueryRowContext(ctx,
		`SELECT group_id FROM chat_groups WHERE chat_id = ?`, chatID,
	).Scan(&groupID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying group selection: %w", err)
	}
	return groupID, nil
}
