package session

import (
	"context"

	"github.com/inkwelllabs/corkboard/internal/board"
)

// World-unit shifts keeping copies off their sources. Paste lands further
// out than duplicate so the two are visually distinguishable.
const (
	DefaultDuplicateOffset = 10.0
	DefaultPasteOffset     = 20.0
)

// KeyDown dispatches one keyboard shortcut. While a text editor holds
// focus every shortcut is ignored so typed characters never mutate the
// board.
func (s *Session) KeyDown(ctx context.Context, key Key) {
	if s.TextEditing() {
		return
	}

	switch key {
	case KeyDelete, KeyBackspace:
		s.DeleteSelection(ctx)
	case KeyEscape:
		s.escape()
	case KeyDuplicate:
		s.Duplicate(ctx)
	case KeyCopy:
		s.Copy()
	case KeyPaste:
		s.Paste(ctx)
	}
}

// escape is the universal cancel: one press drops the pending connector
// anchor, abandons any in-progress gesture, and clears the selection.
func (s *Session) escape() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingAnchor = ""
	if s.pointer.active {
		s.pointer = pointerState{}
	}
	s.selection = make(map[string]struct{})
}

// DeleteSelection removes every selected object plus any connector whose
// endpoint references one of them, then clears the selection. A connector
// must never survive its endpoints.
func (s *Session) DeleteSelection(ctx context.Context) {
	s.mu.Lock()
	if len(s.selection) == 0 {
		s.mu.Unlock()
		return
	}
	doomed := make(map[string]struct{}, len(s.selection))
	for id := range s.selection {
		doomed[id] = struct{}{}
	}
	for id, obj := range s.objects {
		if !obj.IsConnector() {
			continue
		}
		if _, gone := doomed[obj.FromID]; gone {
			doomed[id] = struct{}{}
			continue
		}
		if _, gone := doomed[obj.ToID]; gone {
			doomed[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(doomed))
	for id := range doomed {
		ids = append(ids, id)
		delete(s.objects, id)
	}
	s.selection = make(map[string]struct{})
	s.mu.Unlock()

	if err := s.store.DeleteMany(ctx, s.boardID, ids); err != nil {
		s.logWriteError("session.delete_selection", err)
	}
}

// Copy snapshots the selected non-connector objects onto the clipboard.
// Identity and provenance are stripped at paste time, not here, so the
// snapshot stays a faithful copy of what was selected.
func (s *Session) Copy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clipboard = s.selectedObjectsLocked()
}

// Paste inserts clipboard contents shifted by the paste offset and selects
// the new objects.
func (s *Session) Paste(ctx context.Context) {
	s.mu.Lock()
	snapshot := make([]board.Object, len(s.clipboard))
	copy(snapshot, s.clipboard)
	offset := s.pasteOffset
	s.mu.Unlock()
	s.insertCopies(ctx, snapshot, offset)
}

// Duplicate clones the selected objects in place, shifted by the smaller
// duplicate offset, without touching the clipboard.
func (s *Session) Duplicate(ctx context.Context) {
	s.mu.Lock()
	snapshot := s.selectedObjectsLocked()
	offset := s.duplicateOffset
	s.mu.Unlock()
	s.insertCopies(ctx, snapshot, offset)
}

func (s *Session) selectedObjectsLocked() []board.Object {
	snapshot := make([]board.Object, 0, len(s.selection))
	for id := range s.selection {
		obj, ok := s.objects[id]
		if !ok || obj.IsConnector() {
			continue
		}
		snapshot = append(snapshot, obj)
	}
	return snapshot
}

func (s *Session) insertCopies(ctx context.Context, sources []board.Object, offset float64) {
	if len(sources) == 0 {
		return
	}

	s.mu.Lock()
	count := int64(len(s.objects))
	s.mu.Unlock()

	clones := make([]board.Object, 0, len(sources))
	for i, src := range sources {
		clone := src
		clone.ObjectID = ""
		clone.BoardID = ""
		clone.CreatedBy = ""
		clone.CreatedAtSeconds = 0
		clone.UpdatedBy = ""
		clone.UpdatedAtSeconds = 0
		clone.X += offset
		clone.Y += offset
		clone.ZIndex = board.NextZIndex(board.ObjectType(clone.Type), count+int64(i))
		clones = append(clones, clone)
	}

	ids, err := s.store.CreateMany(ctx, s.boardID, clones, s.actorID)
	if err != nil {
		s.logWriteError("session.paste_objects", err)
		return
	}

	s.mu.Lock()
	s.selection = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.selection[id] = struct{}{}
	}
	s.mu.Unlock()
}
