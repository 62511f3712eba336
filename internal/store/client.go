// Package store implements the typed object store client: CRUD and batch
// operations against a board's object collection with actor provenance
// stamped on every write, plus the live change feed other clients observe.
//
// Consistency is field-level last-write-wins. Partial updates merge
// shallowly, so concurrent edits to different fields of the same object
// both survive; same-field contention resolves to whichever write the
// store clock orders last.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkwelllabs/corkboard/internal/board"
)

// BatchLimit is the per-transaction item cap enforced by the store. Batch
// operations chunk at this size: ordering is preserved across chunks but
// atomicity holds only within one chunk.
const BatchLimit = 500

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingObjectID = errors.New("object identifier is required")
	noOpLogger         = zap.NewNop()
)

const (
	opClientNew    = "store.client.new"
	opCreateMany   = "store.create_many"
	opUpdateMany   = "store.update_many"
	opDeleteMany   = "store.delete_many"
	opListObjects  = "store.list_objects"
	opCountObjects = "store.count_objects"
)

// IDProvider issues identifiers for newly created objects.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// ClientConfig describes the dependencies for the store client.
type ClientConfig struct {
	Database   *gorm.DB
	Feed       *Feed[Event]
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Client performs typed writes against the board object collection.
type Client struct {
	db     *gorm.DB
	feed   *Feed[Event]
	clock  func() time.Time
	ids    IDProvider
	logger *zap.Logger
}

// NewClient validates the configuration and returns a store client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Database == nil {
		return nil, newWriteError(opClientNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		cfg.IDProvider = NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	feed := cfg.Feed
	if feed == nil {
		feed = NewFeed[Event]()
	}
	return &Client{db: cfg.Database, feed: feed, clock: clock, ids: cfg.IDProvider, logger: logger}, nil
}

// Feed exposes the change feed so consumers can Watch.
func (c *Client) Feed() *Feed[Event] {
	return c.feed
}

// Watch subscribes to the board's live change feed. Subscribing with
// already-revoked credentials, seen as a context cancelled before the
// subscription takes, reports a permission-denied SubscriptionError;
// callers treat that as a clean end of the stream, not a failure.
func (c *Client) Watch(ctx context.Context, boardID string) (<-chan Event, func(), error) {
	if boardID == "" {
		return nil, nil, NewSubscriptionError("watch.board_required", nil, false)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, NewSubscriptionError("watch.signed_out", err, true)
	}
	stream, cancel := c.feed.Subscribe(ctx, boardID)
	return stream, cancel, nil
}

// Create inserts one object, assigning its id and provenance, and returns
// the new id.
func (c *Client) Create(ctx context.Context, boardID string, obj board.Object, actorID string) (string, error) {
	ids, err := c.CreateMany(ctx, boardID, []board.Object{obj}, actorID)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateMany inserts objects in order, chunked at BatchLimit per atomic
// transaction, and returns the assigned ids.
func (c *Client) CreateMany(ctx context.Context, boardID string, objects []board.Object, actorID string) ([]string, error) {
	if len(objects) == 0 {
		return nil, nil
	}
	now := c.clock().UTC().Unix()
	createdIDs := make([]string, 0, len(objects))
	prepared := make([]board.Object, 0, len(objects))
	for _, obj := range objects {
		id, err := c.ids.NewID()
		if err != nil {
			c.logError(opCreateMany, "id_generation_failed", err, zap.String("board_id", boardID))
			return nil, newWriteError(opCreateMany, "id_generation_failed", err)
		}
		obj.ObjectID = id
		obj.BoardID = boardID
		obj.CreatedBy = actorID
		obj.CreatedAtSeconds = now
		obj.UpdatedBy = actorID
		obj.UpdatedAtSeconds = now
		prepared = append(prepared, obj)
		createdIDs = append(createdIDs, id)
	}

	for start := 0; start < len(prepared); start += BatchLimit {
		end := start + BatchLimit
		if end > len(prepared) {
			end = len(prepared)
		}
		chunk := prepared[start:end]
		if err := c.db.WithContext(ctx).Create(&chunk).Error; err != nil {
			c.logError(opCreateMany, "insert_failed", err, zap.String("board_id", boardID), zap.Int("chunk_start", start))
			return nil, newWriteError(opCreateMany, "insert_failed", err)
		}
		for _, obj := range chunk {
			c.publish(EventTypeCreated, obj.BoardID, obj.ObjectID, obj)
		}
	}
	return createdIDs, nil
}

// FieldUpdate names an object and the wire fields to merge into it.
type FieldUpdate struct {
	ObjectID string
	Fields   map[string]any
}

// Update merges the given wire fields into one object, stamping updatedBy
// and updatedAt. Unknown and provenance field names are dropped.
func (c *Client) Update(ctx context.Context, boardID, objectID string, fields map[string]any, actorID string) error {
	return c.UpdateMany(ctx, boardID, []FieldUpdate{{ObjectID: objectID, Fields: fields}}, actorID)
}

// UpdateMany applies field merges in order, chunked at BatchLimit per
// atomic transaction.
func (c *Client) UpdateMany(ctx context.Context, boardID string, updates []FieldUpdate, actorID string) error {
	if len(updates) == 0 {
		return nil
	}
	for start := 0; start < len(updates); start += BatchLimit {
		end := start + BatchLimit
		if end > len(updates) {
			end = len(updates)
		}
		chunk := updates[start:end]
		changed := make([]board.Object, 0, len(chunk))
		txErr := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, update := range chunk {
				if update.ObjectID == "" {
					return newWriteError(opUpdateMany, "missing_object_id", errMissingObjectID)
				}
				columns := columnsForFields(update.Fields)
				columns["updated_by"] = actorID
				columns["updated_at_s"] = c.clock().UTC().Unix()
				result := tx.Model(&board.Object{}).
					Where("board_id = ? AND object_id = ?", boardID, update.ObjectID).
					Updates(columns)
				if result.Error != nil {
					return newWriteError(opUpdateMany, "update_failed", result.Error)
				}
				if result.RowsAffected == 0 {
					return newWriteError(opUpdateMany, "object_not_found", gorm.ErrRecordNotFound)
				}
				var current board.Object
				if err := tx.Where("board_id = ? AND object_id = ?", boardID, update.ObjectID).Take(&current).Error; err != nil {
					return newWriteError(opUpdateMany, "readback_failed", err)
				}
				changed = append(changed, current)
			}
			return nil
		})
		if txErr != nil {
			c.logError(opUpdateMany, "transaction_failed", txErr, zap.String("board_id", boardID))
			var writeErr *WriteError
			if errors.As(txErr, &writeErr) {
				return txErr
			}
			return newWriteError(opUpdateMany, "transaction_failed", txErr)
		}
		for _, obj := range changed {
			c.publish(EventTypeUpdated, obj.BoardID, obj.ObjectID, obj)
		}
	}
	return nil
}

// Delete removes one object.
func (c *Client) Delete(ctx context.Context, boardID, objectID string) error {
	return c.DeleteMany(ctx, boardID, []string{objectID})
}

// DeleteMany removes objects, chunked at BatchLimit per atomic transaction.
// Missing ids are not an error: the broadcast may already have removed them.
func (c *Client) DeleteMany(ctx context.Context, boardID string, objectIDs []string) error {
	if len(objectIDs) == 0 {
		return nil
	}
	for start := 0; start < len(objectIDs); start += BatchLimit {
		end := start + BatchLimit
		if end > len(objectIDs) {
			end = len(objectIDs)
		}
		chunk := objectIDs[start:end]
		if err := c.db.WithContext(ctx).
			Where("board_id = ? AND object_id IN ?", boardID, chunk).
			Delete(&board.Object{}).Error; err != nil {
			c.logError(opDeleteMany, "delete_failed", err, zap.String("board_id", boardID))
			return newWriteError(opDeleteMany, "delete_failed", err)
		}
		for _, id := range chunk {
			c.publish(EventTypeDeleted, boardID, id, board.Object{})
		}
	}
	return nil
}

// List returns every object on the board ordered by paint order.
func (c *Client) List(ctx context.Context, boardID string) ([]board.Object, error) {
	var objects []board.Object
	if err := c.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("z_index ASC, object_id ASC").
		Find(&objects).Error; err != nil {
		c.logError(opListObjects, "query_failed", err, zap.String("board_id", boardID))
		return nil, newWriteError(opListObjects, "query_failed", err)
	}
	return objects, nil
}

// Get fetches one object; a nil result means it does not exist.
func (c *Client) Get(ctx context.Context, boardID, objectID string) (*board.Object, error) {
	var obj board.Object
	err := c.db.WithContext(ctx).
		Where("board_id = ? AND object_id = ?", boardID, objectID).
		Take(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, newWriteError(opListObjects, "query_failed", err)
	}
	return &obj, nil
}

// Count returns the number of objects on the board.
func (c *Client) Count(ctx context.Context, boardID string) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).
		Model(&board.Object{}).
		Where("board_id = ?", boardID).
		Count(&count).Error; err != nil {
		c.logError(opCountObjects, "query_failed", err, zap.String("board_id", boardID))
		return 0, newWriteError(opCountObjects, "query_failed", err)
	}
	return count, nil
}

func (c *Client) publish(eventType EventType, boardID, objectID string, obj board.Object) {
	c.feed.Publish(boardID, Event{
		BoardID:   boardID,
		Type:      eventType,
		ObjectID:  objectID,
		Object:    obj,
		Timestamp: c.clock().UTC(),
	})
}

func (c *Client) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	c.logger.Error("store client error", attrs...)
}

// wireColumns maps mutable wire field names to their storage columns.
// Identity and provenance fields are intentionally absent: the client owns
// those, and unknown names are dropped rather than rejected.
var wireColumns = map[string]string{
	"x":           "x",
	"y":           "y",
	"width":       "width",
	"height":      "height",
	"radius":      "radius",
	"rotation":    "rotation",
	"zIndex":      "z_index",
	"text":        "text_content",
	"title":       "title",
	"fontSize":    "font_size",
	"color":       "color",
	"strokeColor": "stroke_color",
	"strokeWidth": "stroke_width",
	"arrowEnd":    "arrow_end",
	"fromId":      "from_id",
	"toId":        "to_id",
	"fromX":       "from_x",
	"fromY":       "from_y",
	"toX":         "to_x",
	"toY":         "to_y",
}

func columnsForFields(fields map[string]any) map[string]any {
	columns := make(map[string]any, len(fields)+2)
	for name, value := range fields {
		if column, ok := wireColumns[name]; ok {
			columns[column] = value
		}
	}
	return columns
}
