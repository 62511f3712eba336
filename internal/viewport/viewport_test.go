package viewport

import (
	"math"
	"testing"
	"time"

	"github.com/inkwelllabs/corkboard/internal/board"
)

func TestWorldRectAppliesMarginAndScale(t *testing.T) {
	camera := Camera{Scale: 2, OffsetX: -100, OffsetY: 50, Width: 800, Height: 600}
	rect := camera.WorldRect()
	if rect.X != 100/2.0-CullMargin {
		t.Fatalf("unexpected rect x %v", rect.X)
	}
	if rect.Y != -50/2.0-CullMargin {
		t.Fatalf("unexpected rect y %v", rect.Y)
	}
	if rect.W != 800/2.0+2*CullMargin {
		t.Fatalf("unexpected rect w %v", rect.W)
	}
	if rect.H != 600/2.0+2*CullMargin {
		t.Fatalf("unexpected rect h %v", rect.H)
	}
}

func TestVisibleIncludesCenterExcludesFarAway(t *testing.T) {
	camera := NewCamera(800, 600)
	centerX, centerY := camera.Center()
	atCenter := board.Object{ObjectID: "center", Type: string(board.ObjectTypeStickyNote), X: centerX - 10, Y: centerY - 10, Width: 20, Height: 20}
	farAway := board.Object{ObjectID: "far", Type: string(board.ObjectTypeRectangle), X: 100000, Y: 100000, Width: 10, Height: 10}

	visible := Visible(camera, []board.Object{atCenter, farAway})
	if len(visible) != 1 || visible[0].ObjectID != "center" {
		t.Fatalf("unexpected visible set %+v", visible)
	}
}

func TestVisibleConnectorSpansEndpoints(t *testing.T) {
	camera := NewCamera(800, 600)
	left := board.Object{ObjectID: "a", Type: string(board.ObjectTypeRectangle), X: -50000, Y: 0, Width: 10, Height: 10}
	right := board.Object{ObjectID: "b", Type: string(board.ObjectTypeRectangle), X: 50000, Y: 0, Width: 10, Height: 10}
	conn := board.Object{ObjectID: "c", Type: string(board.ObjectTypeConnector), FromID: "a", ToID: "b"}

	visible := Visible(camera, []board.Object{left, right, conn})
	found := false
	for _, obj := range visible {
		if obj.ObjectID == "c" {
			found = true
		}
	}
	if !found {
		t.Fatalf("connector spanning the viewport must stay visible")
	}
}

func TestVisibleConnectorMissingEndpointAlwaysVisible(t *testing.T) {
	camera := NewCamera(800, 600)
	conn := board.Object{ObjectID: "c", Type: string(board.ObjectTypeConnector), FromID: "gone", ToID: "also-gone"}
	visible := Visible(camera, []board.Object{conn})
	if len(visible) != 1 {
		t.Fatalf("connector with missing endpoints must not be culled")
	}
}

func TestZoomAtKeepsPointerFixed(t *testing.T) {
	camera := NewCamera(800, 600)
	worldX, worldY := camera.ToWorld(400, 300)
	zoomed := camera.ZoomAt(400, 300, 1)
	zoomedX, zoomedY := zoomed.ToWorld(400, 300)
	if math.Abs(worldX-zoomedX) > 1e-9 || math.Abs(worldY-zoomedY) > 1e-9 {
		t.Fatalf("world point under the pointer moved: (%v,%v) -> (%v,%v)", worldX, worldY, zoomedX, zoomedY)
	}
	if zoomed.Scale != ZoomFactor {
		t.Fatalf("unexpected scale %v", zoomed.Scale)
	}
}

func TestZoomClamps(t *testing.T) {
	camera := NewCamera(800, 600)
	for i := 0; i < 50; i++ {
		camera = camera.ZoomAt(0, 0, 1)
	}
	if camera.Scale != MaxZoom {
		t.Fatalf("expected clamp at max zoom, got %v", camera.Scale)
	}
	for i := 0; i < 100; i++ {
		camera = camera.ZoomAt(0, 0, -1)
	}
	if camera.Scale != MinZoom {
		t.Fatalf("expected clamp at min zoom, got %v", camera.Scale)
	}
}

func TestSortForPaintOrdersByZIndexThenID(t *testing.T) {
	objects := []board.Object{
		{ObjectID: "b", ZIndex: 2},
		{ObjectID: "a", ZIndex: 2},
		{ObjectID: "frame", ZIndex: 0},
		{ObjectID: "top", ZIndex: 9},
	}
	SortForPaint(objects)
	order := []string{objects[0].ObjectID, objects[1].ObjectID, objects[2].ObjectID, objects[3].ObjectID}
	want := []string{"frame", "a", "b", "top"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected paint order %v", order)
		}
	}
}

func TestCacheControllerTogglesDuringMovement(t *testing.T) {
	controller := NewCacheController(20 * time.Millisecond)
	defer controller.Close()

	if controller.Mode() != LayerModeVector {
		t.Fatalf("controller must start in vector mode")
	}
	controller.CameraMoved()
	if controller.Mode() != LayerModeBitmap {
		t.Fatalf("movement must switch to bitmap mode")
	}

	deadline := time.Now().Add(time.Second)
	for controller.Mode() != LayerModeVector {
		if time.Now().After(deadline) {
			t.Fatalf("controller never settled back to vector mode")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
