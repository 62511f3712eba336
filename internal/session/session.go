// Package session owns the client-local interaction state of one user on
// one board: the current tool, the selection set, in-progress pointer
// gestures, the connector anchor, the clipboard, and the camera. Nothing
// here is shared with peers until a gesture commits a store write.
//
// Mutations are optimistic: the gesture completes locally at once and the
// write is issued against the store with errors logged, never rolled back.
// The authoritative broadcast reconciles state afterwards.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/inkwelllabs/corkboard/internal/board"
	"github.com/inkwelllabs/corkboard/internal/store"
	"github.com/inkwelllabs/corkboard/internal/viewport"
)

var (
	errMissingStore   = errors.New("session: store is required")
	errMissingBoardID = errors.New("session: board id is required")
	errMissingActorID = errors.New("session: actor id is required")
)

// Store is the slice of the object store client the session drives.
type Store interface {
	Create(ctx context.Context, boardID string, obj board.Object, actorID string) (string, error)
	CreateMany(ctx context.Context, boardID string, objects []board.Object, actorID string) ([]string, error)
	UpdateMany(ctx context.Context, boardID string, updates []store.FieldUpdate, actorID string) error
	DeleteMany(ctx context.Context, boardID string, objectIDs []string) error
}

// Config describes one interaction session.
type Config struct {
	Store   Store
	BoardID string
	ActorID string
	Camera  viewport.Camera
	Logger  *zap.Logger

	// DuplicateOffset shifts duplicated objects; zero means
	// DefaultDuplicateOffset.
	DuplicateOffset float64
	// PasteOffset shifts pasted objects, deliberately further than a
	// duplicate; zero means DefaultPasteOffset.
	PasteOffset float64
}

// Session is the selection and tool state machine.
type Session struct {
	mu      sync.Mutex
	store   Store
	boardID string
	actorID string
	logger  *zap.Logger

	camera          viewport.Camera
	cache           *viewport.CacheController
	tool            Tool
	color           string
	duplicateOffset float64
	pasteOffset     float64

	objects   map[string]board.Object
	selection map[string]struct{}
	clipboard []board.Object

	pointer       pointerState
	pendingAnchor string
	editor        *TextEditor
}

// New validates the configuration and returns a session in SELECT mode.
func New(cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.BoardID == "" {
		return nil, errMissingBoardID
	}
	if cfg.ActorID == "" {
		return nil, errMissingActorID
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	camera := cfg.Camera
	if camera.Scale == 0 {
		camera = viewport.NewCamera(1280, 720)
	}
	duplicateOffset := cfg.DuplicateOffset
	if duplicateOffset == 0 {
		duplicateOffset = DefaultDuplicateOffset
	}
	pasteOffset := cfg.PasteOffset
	if pasteOffset == 0 {
		pasteOffset = DefaultPasteOffset
	}
	return &Session{
		store:           cfg.Store,
		boardID:         cfg.BoardID,
		actorID:         cfg.ActorID,
		logger:          logger,
		camera:          camera,
		cache:           viewport.NewCacheController(0),
		tool:            ToolSelect,
		duplicateOffset: duplicateOffset,
		pasteOffset:     pasteOffset,
		objects:         make(map[string]board.Object),
		selection:       make(map[string]struct{}),
	}, nil
}

// Close releases the camera cache controller and any open editor.
func (s *Session) Close() {
	s.mu.Lock()
	editor := s.editor
	s.mu.Unlock()
	if editor != nil {
		editor.Discard()
	}
	s.cache.Close()
}

// Tool returns the active tool.
func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetTool switches the global mode. The selection survives; only a pending
// connector anchor is dropped since it belongs to the CONNECTOR mode.
func (s *Session) SetTool(tool Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = tool
	if tool != ToolConnector {
		s.pendingAnchor = ""
	}
}

// SetColor picks the fill for subsequently created objects; empty means
// the type default.
func (s *Session) SetColor(color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = color
}

// Camera returns the current screen transform.
func (s *Session) Camera() viewport.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// CacheMode reports whether the heavy layer currently renders live vectors
// or the cached bitmap.
func (s *Session) CacheMode() viewport.LayerMode {
	return s.cache.Mode()
}

// ZoomAt applies one zoom step about a pointer position.
func (s *Session) ZoomAt(px, py float64, direction int) {
	s.mu.Lock()
	s.camera = s.camera.ZoomAt(px, py, direction)
	s.mu.Unlock()
	s.cache.CameraMoved()
}

// ResetView restores the identity camera.
func (s *Session) ResetView() {
	s.mu.Lock()
	s.camera = s.camera.Reset()
	s.mu.Unlock()
}

// SetObjects replaces the local mirror with a store snapshot.
func (s *Session) SetObjects(objects []board.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string]board.Object, len(objects))
	for _, obj := range objects {
		s.objects[obj.ObjectID] = obj
	}
}

// ApplyEvent folds one broadcast change into the local mirror. Deletions
// also drop the object from the selection so no gesture operates on a
// ghost.
func (s *Session) ApplyEvent(event store.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch event.Type {
	case store.EventTypeDeleted:
		delete(s.objects, event.ObjectID)
		delete(s.selection, event.ObjectID)
		if s.pendingAnchor == event.ObjectID {
			s.pendingAnchor = ""
		}
	default:
		s.objects[event.ObjectID] = event.Object
	}
}

// Objects returns the mirror in paint order, with any in-progress group
// drag translation applied to selection members so peers' objects stay
// put while the local gesture is live.
func (s *Session) Objects() []board.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects := make([]board.Object, 0, len(s.objects))
	dx, dy := s.pointer.worldDelta()
	for _, obj := range s.objects {
		if s.pointer.kind == dragObject && s.pointer.moved {
			if obj.ObjectID == s.pointer.targetID {
				obj.X += dx
				obj.Y += dy
			} else if s.pointer.group {
				if _, selected := s.selection[obj.ObjectID]; selected {
					obj.X += dx
					obj.Y += dy
				}
			}
		}
		objects = append(objects, obj)
	}
	viewport.SortForPaint(objects)
	return objects
}

// VisibleObjects culls the mirror against the camera viewport.
func (s *Session) VisibleObjects() []board.Object {
	return viewport.Visible(s.Camera(), s.Objects())
}

// Selection returns the selected object ids in stable order.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Selected reports membership in the selection set.
func (s *Session) Selected(objectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selection[objectID]
	return ok
}

// ClearSelection empties the selection set.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]struct{})
}

// PendingAnchor returns the object id recorded as the connector's "from"
// anchor, or empty when no connector is in progress.
func (s *Session) PendingAnchor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingAnchor
}

// ObjectCount reports the mirror size; zIndex assignment builds on it.
func (s *Session) ObjectCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.objects))
}

func (s *Session) lookup(objectID string) (board.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[objectID]
	return obj, ok
}

// hitTest returns the topmost object whose bounding box contains the world
// point, or empty for bare canvas. Connectors are skipped: their hit area
// is a thin line the pointer protocol treats as canvas.
func (s *Session) hitTest(wx, wy float64) string {
	s.mu.Lock()
	objects := make([]board.Object, 0, len(s.objects))
	for _, obj := range s.objects {
		objects = append(objects, obj)
	}
	s.mu.Unlock()

	viewport.SortForPaint(objects)
	for i := len(objects) - 1; i >= 0; i-- {
		if objects[i].IsConnector() {
			continue
		}
		if board.BoundingBox(objects[i]).Contains(wx, wy) {
			return objects[i].ObjectID
		}
	}
	return ""
}

func (s *Session) logWriteError(operation string, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("optimistic write failed", zap.String("operation", operation), zap.Error(err))
}
