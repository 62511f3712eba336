package session

import (
	"context"

	"github.com/inkwelllabs/corkboard/internal/board"
	"github.com/inkwelllabs/corkboard/internal/geometry"
	"github.com/inkwelllabs/corkboard/internal/store"
	"github.com/inkwelllabs/corkboard/internal/viewport"
)

// dragThresholdPx is the minimum pointer travel before a press counts as a
// drag instead of a click.
const dragThresholdPx = 5

type dragKind int

const (
	dragNone dragKind = iota
	dragPan
	dragRubber
	dragObject
)

type pointerState struct {
	active   bool
	kind     dragKind
	shift    bool
	group    bool
	moved    bool
	targetID string
	scale    float64

	startPxX float64
	startPxY float64
	lastPxX  float64
	lastPxY  float64
}

// worldDelta converts the accumulated pixel travel to world units.
func (p pointerState) worldDelta() (float64, float64) {
	if !p.active || p.scale == 0 {
		return 0, 0
	}
	return (p.lastPxX - p.startPxX) / p.scale, (p.lastPxY - p.startPxY) / p.scale
}

// PointerDown begins a gesture at a screen position. The hit target is
// resolved against the local mirror.
func (s *Session) PointerDown(ctx context.Context, px, py float64, shift bool) {
	s.mu.Lock()
	camera := s.camera
	tool := s.tool
	s.mu.Unlock()

	wx, wy := camera.ToWorld(px, py)
	targetID := s.hitTest(wx, wy)

	state := pointerState{
		active:   true,
		shift:    shift,
		targetID: targetID,
		scale:    camera.Scale,
		startPxX: px,
		startPxY: py,
		lastPxX:  px,
		lastPxY:  py,
	}

	if tool == ToolSelect && targetID != "" {
		state.kind = dragObject
		s.mu.Lock()
		_, alreadySelected := s.selection[targetID]
		if !shift && !alreadySelected {
			// Clicking an unselected object replaces the selection right
			// away so the drag moves it alone.
			s.selection = map[string]struct{}{targetID: {}}
			alreadySelected = true
		}
		state.group = alreadySelected && len(s.selection) > 1
		s.pointer = state
		s.mu.Unlock()
		return
	}

	if tool == ToolSelect {
		if shift {
			state.kind = dragRubber
		} else {
			state.kind = dragPan
		}
	}

	s.mu.Lock()
	s.pointer = state
	s.mu.Unlock()
}

// PointerMove advances the gesture. Panning applies immediately; object
// and rubber-band drags stay local until release.
func (s *Session) PointerMove(px, py float64) {
	s.mu.Lock()
	if !s.pointer.active {
		s.mu.Unlock()
		return
	}
	dxPx := px - s.pointer.lastPxX
	dyPx := py - s.pointer.lastPxY
	s.pointer.lastPxX = px
	s.pointer.lastPxY = py

	travelX := px - s.pointer.startPxX
	travelY := py - s.pointer.startPxY
	if !s.pointer.moved && (travelX*travelX+travelY*travelY) >= dragThresholdPx*dragThresholdPx {
		s.pointer.moved = true
	}

	panning := s.pointer.kind == dragPan && s.pointer.moved
	if panning {
		s.camera = s.camera.Pan(dxPx, dyPx)
	}
	s.mu.Unlock()

	if panning {
		s.cache.CameraMoved()
	}
}

// PointerUp completes the gesture: click dispatch, rubber-band selection,
// or persisting dragged positions.
func (s *Session) PointerUp(ctx context.Context, px, py float64) {
	s.mu.Lock()
	state := s.pointer
	s.pointer = pointerState{}
	camera := s.camera
	tool := s.tool
	s.mu.Unlock()

	if !state.active {
		return
	}
	state.lastPxX = px
	state.lastPxY = py

	if !state.moved {
		s.click(ctx, camera, tool, state)
		return
	}

	switch state.kind {
	case dragRubber:
		s.finishRubberBand(camera, state)
	case dragObject:
		s.finishObjectDrag(ctx, state)
	}
}

// CancelGesture aborts any in-progress pointer interaction without
// committing it.
func (s *Session) CancelGesture() {
	s.mu.Lock()
	s.pointer = pointerState{}
	s.mu.Unlock()
}

func (s *Session) click(ctx context.Context, camera viewport.Camera, tool Tool, state pointerState) {
	wx, wy := camera.ToWorld(state.startPxX, state.startPxY)

	if tool == ToolConnector {
		s.connectorClick(ctx, state.targetID)
		return
	}

	if objectType, isCreation := tool.CreatesType(); isCreation {
		if state.targetID != "" {
			return // never create on top of an existing object
		}
		s.createAt(ctx, objectType, wx, wy)
		return
	}

	// SELECT clicks.
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.targetID == "" {
		s.selection = make(map[string]struct{})
		return
	}
	if state.shift {
		if _, ok := s.selection[state.targetID]; ok {
			delete(s.selection, state.targetID)
		} else {
			s.selection[state.targetID] = struct{}{}
		}
		return
	}
	s.selection = map[string]struct{}{state.targetID: {}}
}

func (s *Session) createAt(ctx context.Context, objectType board.ObjectType, wx, wy float64) {
	s.mu.Lock()
	color := s.color
	count := int64(len(s.objects))
	s.mu.Unlock()

	obj := board.NewObject(objectType, wx, wy, color, count)
	if _, err := s.store.Create(ctx, s.boardID, obj, s.actorID); err != nil {
		s.logWriteError("session.create_object", err)
	}
}

func (s *Session) connectorClick(ctx context.Context, targetID string) {
	if targetID == "" {
		s.mu.Lock()
		s.pendingAnchor = ""
		s.mu.Unlock()
		return
	}
	target, ok := s.lookup(targetID)
	if !ok || target.IsConnector() {
		return
	}

	s.mu.Lock()
	anchorID := s.pendingAnchor
	count := int64(len(s.objects))
	s.mu.Unlock()

	if anchorID == "" {
		s.mu.Lock()
		s.pendingAnchor = targetID
		s.mu.Unlock()
		return
	}
	if anchorID == targetID {
		return
	}
	anchor, ok := s.lookup(anchorID)
	if !ok {
		s.mu.Lock()
		s.pendingAnchor = ""
		s.mu.Unlock()
		return
	}

	endpoints := geometry.ConnectionPoints(anchor, target)
	conn := board.NewObject(board.ObjectTypeConnector, 0, 0, "", count)
	conn.FromID = anchor.ObjectID
	conn.ToID = target.ObjectID
	conn.FromX = endpoints.FromX
	conn.FromY = endpoints.FromY
	conn.ToX = endpoints.ToX
	conn.ToY = endpoints.ToY

	s.mu.Lock()
	s.pendingAnchor = ""
	s.mu.Unlock()

	if _, err := s.store.Create(ctx, s.boardID, conn, s.actorID); err != nil {
		s.logWriteError("session.create_connector", err)
	}
}

// ConnectorPreview returns the live preview segment from the pending
// anchor's center to the pointer's canvas position, and false when no
// anchor is pending.
func (s *Session) ConnectorPreview(px, py float64) (geometry.Point, geometry.Point, bool) {
	s.mu.Lock()
	anchorID := s.pendingAnchor
	camera := s.camera
	s.mu.Unlock()
	if anchorID == "" {
		return geometry.Point{}, geometry.Point{}, false
	}
	anchor, ok := s.lookup(anchorID)
	if !ok {
		return geometry.Point{}, geometry.Point{}, false
	}
	wx, wy := camera.ToWorld(px, py)
	return geometry.Center(anchor), geometry.Point{X: wx, Y: wy}, true
}

func (s *Session) finishRubberBand(camera viewport.Camera, state pointerState) {
	x1, y1 := camera.ToWorld(state.startPxX, state.startPxY)
	x2, y2 := camera.ToWorld(state.lastPxX, state.lastPxY)
	band := board.Rect{
		X: minFloat(x1, x2),
		Y: minFloat(y1, y2),
		W: absFloat(x2 - x1),
		H: absFloat(y2 - y1),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]struct{})
	for id, obj := range s.objects {
		if obj.IsConnector() {
			continue
		}
		if board.BoundingBox(obj).Intersects(band) {
			next[id] = struct{}{}
		}
	}
	// Replaces the selection either way: no hits means cleared.
	s.selection = next
}

func (s *Session) finishObjectDrag(ctx context.Context, state pointerState) {
	dx, dy := state.worldDelta()
	if dx == 0 && dy == 0 {
		return
	}

	s.mu.Lock()
	moved := make([]string, 0, len(s.selection)+1)
	if state.group {
		for id := range s.selection {
			moved = append(moved, id)
		}
	} else {
		moved = append(moved, state.targetID)
	}
	updates := make([]store.FieldUpdate, 0, len(moved))
	for _, id := range moved {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}
		obj.X += dx
		obj.Y += dy
		s.objects[id] = obj
		updates = append(updates, store.FieldUpdate{
			ObjectID: id,
			Fields:   map[string]any{"x": obj.X, "y": obj.Y},
		})
	}
	s.mu.Unlock()

	if len(updates) == 0 {
		return
	}
	if err := s.store.UpdateMany(ctx, s.boardID, updates, s.actorID); err != nil {
		s.logWriteError("session.move_objects", err)
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
