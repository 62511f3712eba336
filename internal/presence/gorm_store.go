package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwelllabs/corkboard/internal/store"
)

var errMissingDatabase = errors.New("presence: database handle is required")

// GormStore keeps presence records in the shared database and pushes every
// write to feed subscribers, mirroring how object changes broadcast.
type GormStore struct {
	db   *gorm.DB
	feed *store.Feed[Record]
}

// NewGormStore returns a database-backed presence store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &GormStore{db: db, feed: store.NewFeed[Record]()}, nil
}

// Upsert creates or replaces the user's presence record.
func (s *GormStore) Upsert(ctx context.Context, record Record) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "board_id"}, {Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("presence upsert: %w", err)
	}
	s.feed.Publish(record.BoardID, record)
	return nil
}

// UpdateCursor writes the cursor position and refreshes last-seen.
func (s *GormStore) UpdateCursor(ctx context.Context, boardID, userID string, x, y float64, seenAt time.Time) error {
	return s.updateColumns(ctx, boardID, userID, map[string]any{
		"cursor_x":     x,
		"cursor_y":     y,
		"last_seen_ms": seenAt.UnixMilli(),
	})
}

// Heartbeat refreshes last-seen without touching the cursor.
func (s *GormStore) Heartbeat(ctx context.Context, boardID, userID string, seenAt time.Time) error {
	return s.updateColumns(ctx, boardID, userID, map[string]any{
		"last_seen_ms": seenAt.UnixMilli(),
	})
}

// Remove deletes the user's presence record.
func (s *GormStore) Remove(ctx context.Context, boardID, userID string) error {
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("presence remove: %w", err)
	}
	s.feed.Publish(boardID, Record{BoardID: boardID, UserID: userID, LastSeenMillis: 0})
	return nil
}

// List returns every presence record on the board.
func (s *GormStore) List(ctx context.Context, boardID string) ([]Record, error) {
	var records []Record
	if err := s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("presence list: %w", err)
	}
	return records, nil
}

// Watch subscribes to presence writes on the board.
func (s *GormStore) Watch(ctx context.Context, boardID string) (<-chan Record, func()) {
	return s.feed.Subscribe(ctx, boardID)
}

func (s *GormStore) updateColumns(ctx context.Context, boardID, userID string, columns map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("presence update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("presence update: record not found for %s on %s", userID, boardID)
	}
	var current Record
	if err := s.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Take(&current).Error; err == nil {
		s.feed.Publish(boardID, current)
	}
	return nil
}
