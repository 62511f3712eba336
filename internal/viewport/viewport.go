// Package viewport owns the pan/zoom camera, the spatial culler that keeps
// rendering bounded to what intersects the visible area, and the raster
// cache toggle used while the camera is moving.
package viewport

import (
	"sort"

	"github.com/inkwelllabs/corkboard/internal/board"
)

const (
	// CullMargin pads the world-space viewport so objects do not pop in
	// right at the edge.
	CullMargin = 200

	// ZoomFactor is the per-step zoom multiplier.
	ZoomFactor = 1.15
	// MinZoom and MaxZoom clamp the camera scale.
	MinZoom = 0.1
	MaxZoom = 5
)

// Camera captures the current screen transform: world coordinates scale by
// Scale and translate by (OffsetX, OffsetY) into pixels.
type Camera struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
	Width   float64
	Height  float64
}

// NewCamera returns an identity camera over the given pixel viewport.
func NewCamera(widthPx, heightPx float64) Camera {
	return Camera{Scale: 1, Width: widthPx, Height: heightPx}
}

// ToWorld converts a screen-pixel point to canvas coordinates.
func (c Camera) ToWorld(px, py float64) (float64, float64) {
	return (px - c.OffsetX) / c.Scale, (py - c.OffsetY) / c.Scale
}

// ToScreen converts a canvas point to screen pixels.
func (c Camera) ToScreen(wx, wy float64) (float64, float64) {
	return wx*c.Scale + c.OffsetX, wy*c.Scale + c.OffsetY
}

// Pan translates the camera by a pixel delta.
func (c Camera) Pan(dxPx, dyPx float64) Camera {
	c.OffsetX += dxPx
	c.OffsetY += dyPx
	return c
}

// ZoomAt applies one zoom step about the given pointer position so the
// world point under the pointer stays put. A positive direction zooms in.
func (c Camera) ZoomAt(px, py float64, direction int) Camera {
	oldScale := c.Scale
	newScale := oldScale * ZoomFactor
	if direction < 0 {
		newScale = oldScale / ZoomFactor
	}
	newScale = clampScale(newScale)

	worldX := (px - c.OffsetX) / oldScale
	worldY := (py - c.OffsetY) / oldScale
	c.Scale = newScale
	c.OffsetX = px - worldX*newScale
	c.OffsetY = py - worldY*newScale
	return c
}

// Reset returns the camera to identity scale and origin.
func (c Camera) Reset() Camera {
	c.Scale = 1
	c.OffsetX = 0
	c.OffsetY = 0
	return c
}

// Center returns the canvas point currently at the middle of the viewport.
func (c Camera) Center() (float64, float64) {
	return c.ToWorld(c.Width/2, c.Height/2)
}

// WorldRect computes the margin-padded world-space rectangle covered by the
// viewport.
func (c Camera) WorldRect() board.Rect {
	return board.Rect{
		X: -c.OffsetX/c.Scale - CullMargin,
		Y: -c.OffsetY/c.Scale - CullMargin,
		W: c.Width/c.Scale + 2*CullMargin,
		H: c.Height/c.Scale + 2*CullMargin,
	}
}

func clampScale(scale float64) float64 {
	if scale < MinZoom {
		return MinZoom
	}
	if scale > MaxZoom {
		return MaxZoom
	}
	return scale
}

// Visible filters objects to those intersecting the padded viewport. A
// connector is visible when the span of both endpoint objects intersects;
// when an endpoint is missing it stays visible rather than flickering out.
func Visible(camera Camera, objects []board.Object) []board.Object {
	view := camera.WorldRect()
	byID := make(map[string]board.Object, len(objects))
	for _, obj := range objects {
		byID[obj.ObjectID] = obj
	}

	visible := make([]board.Object, 0, len(objects))
	for _, obj := range objects {
		if obj.IsConnector() {
			if connectorVisible(view, obj, byID) {
				visible = append(visible, obj)
			}
			continue
		}
		if board.BoundingBox(obj).Intersects(view) {
			visible = append(visible, obj)
		}
	}
	return visible
}

func connectorVisible(view board.Rect, conn board.Object, byID map[string]board.Object) bool {
	from, fromOK := byID[conn.FromID]
	to, toOK := byID[conn.ToID]
	if !fromOK || !toOK {
		return true
	}
	span := board.BoundingBox(from).Union(board.BoundingBox(to))
	return span.Intersects(view)
}

// SortForPaint orders objects for rendering: ascending zIndex, ties broken
// by id so the order stays stable across clients.
func SortForPaint(objects []board.Object) {
	sort.SliceStable(objects, func(i, j int) bool {
		if objects[i].ZIndex != objects[j].ZIndex {
			return objects[i].ZIndex < objects[j].ZIndex
		}
		return objects[i].ObjectID < objects[j].ObjectID
	})
}
