package presence

import (
	"context"
	"time"
)

// Record is one connected user's presence on a board: who they are, where
// their cursor sits in canvas coordinates, and when they were last seen.
type Record struct {
	BoardID        string  `gorm:"column:board_id;primaryKey;size:190;not null" json:"-"`
	UserID         string  `gorm:"column:user_id;primaryKey;size:190;not null" json:"id"`
	DisplayName    string  `gorm:"column:display_name;size:500;not null;default:''" json:"displayName"`
	Color          string  `gorm:"column:color;size:64;not null;default:''" json:"color"`
	CursorX        float64 `gorm:"column:cursor_x;not null;default:0" json:"cursorX"`
	CursorY        float64 `gorm:"column:cursor_y;not null;default:0" json:"cursorY"`
	LastSeenMillis int64   `gorm:"column:last_seen_ms;not null;default:0" json:"lastSeen"`
}

// TableName provides the explicit table binding for GORM.
func (Record) TableName() string {
	return "board_presence"
}

// LastSeen returns the record's last-seen instant.
func (r Record) LastSeen() time.Time {
	return time.UnixMilli(r.LastSeenMillis)
}

// Store abstracts the presence backend. The gorm store keeps records in
// the shared database and pushes every write to subscribers; the redis
// store leans on key TTLs and is poll-driven.
type Store interface {
	Upsert(ctx context.Context, record Record) error
	UpdateCursor(ctx context.Context, boardID, userID string, x, y float64, seenAt time.Time) error
	Heartbeat(ctx context.Context, boardID, userID string, seenAt time.Time) error
	Remove(ctx context.Context, boardID, userID string) error
	List(ctx context.Context, boardID string) ([]Record, error)
	Watch(ctx context.Context, boardID string) (<-chan Record, func())
}
