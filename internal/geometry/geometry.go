// Package geometry computes connector anchor points: the center of a board
// object and the boundary point where a segment toward another object's
// center leaves its shape.
package geometry

import (
	"math"

	"github.com/inkwelllabs/corkboard/internal/board"
)

// Point is a position in world coordinates.
type Point struct {
	X float64
	Y float64
}

// Endpoints is the resolved pair of edge points facing each other.
type Endpoints struct {
	FromX float64
	FromY float64
	ToX   float64
	ToY   float64
}

// Center returns the per-type anchor center of an object. Circles store
// their center directly; rectangle-like shapes derive it from the bounding
// size; lines anchor at their midpoint on the baseline.
func Center(obj board.Object) Point {
	switch board.ObjectType(obj.Type) {
	case board.ObjectTypeCircle:
		return Point{X: obj.X, Y: obj.Y}
	case board.ObjectTypeLine:
		width, _ := board.Size(obj)
		return Point{X: obj.X + width/2, Y: obj.Y}
	default:
		width, height := board.Size(obj)
		return Point{X: obj.X + width/2, Y: obj.Y + height/2}
	}
}

// EdgePoint returns the boundary point of obj on the ray from its center
// toward the target point.
func EdgePoint(obj board.Object, center Point, toward Point) Point {
	if board.ObjectType(obj.Type) == board.ObjectTypeCircle {
		radius := obj.Radius
		if radius == 0 {
			radius = board.DescriptorFor(board.ObjectTypeCircle).DefaultRadius
		}
		return circleEdgePoint(center, radius, toward)
	}
	width, height := board.Size(obj)
	return rectEdgePoint(center, width, height, toward)
}

// ConnectionPoints resolves the pair of edge points for a connector between
// two objects, each facing the other's center.
func ConnectionPoints(from, to board.Object) Endpoints {
	fromCenter := Center(from)
	toCenter := Center(to)
	fromEdge := EdgePoint(from, fromCenter, toCenter)
	toEdge := EdgePoint(to, toCenter, fromCenter)
	return Endpoints{FromX: fromEdge.X, FromY: fromEdge.Y, ToX: toEdge.X, ToY: toEdge.Y}
}

// Lookup resolves an object id to its current state. A nil result means the
// object is gone.
type Lookup func(objectID string) *board.Object

// ResolveConnector recomputes a connector's endpoints from the current
// positions of its referenced objects. When either endpoint no longer
// resolves, the connector's cached coordinates are returned unchanged so it
// degrades instead of disappearing.
func ResolveConnector(conn board.Object, lookup Lookup) Endpoints {
	cached := Endpoints{FromX: conn.FromX, FromY: conn.FromY, ToX: conn.ToX, ToY: conn.ToY}
	if lookup == nil {
		return cached
	}
	from := lookup(conn.FromID)
	to := lookup(conn.ToID)
	if from == nil || to == nil {
		return cached
	}
	return ConnectionPoints(*from, *to)
}

func circleEdgePoint(center Point, radius float64, toward Point) Point {
	dx := toward.X - center.X
	dy := toward.Y - center.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return Point{X: center.X + radius, Y: center.Y}
	}
	return Point{X: center.X + dx/dist*radius, Y: center.Y + dy/dist*radius}
}

// rectEdgePoint picks the edge the ray exits through by comparing the slopes
// |dx|*hh vs |dy|*hw, then scales the direction by the matching t.
func rectEdgePoint(center Point, width, height float64, toward Point) Point {
	dx := toward.X - center.X
	dy := toward.Y - center.Y
	if dx == 0 && dy == 0 {
		return center
	}
	halfWidth := width / 2
	halfHeight := height / 2
	absDx := math.Abs(dx)
	absDy := math.Abs(dy)

	var t float64
	if absDx*halfHeight > absDy*halfWidth {
		t = halfWidth / absDx
	} else {
		t = halfHeight / absDy
	}
	return Point{X: center.X + dx*t, Y: center.Y + dy*t}
}
