package board

// Rect is an axis-aligned rectangle in world coordinates.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Intersects reports whether two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.W &&
		r.X+r.W > other.X &&
		r.Y < other.Y+other.H &&
		r.Y+r.H > other.Y
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(px, py float64) bool {
	return px >= r.X && px <= r.X+r.W && py >= r.Y && py <= r.Y+r.H
}

// Union returns the smallest rectangle covering both inputs.
func (r Rect) Union(other Rect) Rect {
	minX := r.X
	if other.X < minX {
		minX = other.X
	}
	minY := r.Y
	if other.Y < minY {
		minY = other.Y
	}
	maxX := r.X + r.W
	if other.X+other.W > maxX {
		maxX = other.X + other.W
	}
	maxY := r.Y + r.H
	if other.Y+other.H > maxY {
		maxY = other.Y + other.H
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

const lineHitHeight = 10

// Size returns the effective width and height used for hit testing and
// edge-point resolution, substituting the type defaults for zero fields.
func Size(obj Object) (float64, float64) {
	descriptor := DescriptorFor(ObjectType(obj.Type))
	width := obj.Width
	if width == 0 {
		width = descriptor.DefaultWidth
		if width == 0 {
			width = 120
		}
	}
	height := obj.Height
	switch ObjectType(obj.Type) {
	case ObjectTypeText:
		height = obj.FontSize
		if height == 0 {
			height = descriptor.DefaultFontSize
		}
	case ObjectTypeLine:
		height = lineHitHeight
	default:
		if height == 0 {
			height = descriptor.DefaultHeight
			if height == 0 {
				height = 120
			}
		}
	}
	return width, height
}

// BoundingBox returns the object's world-space axis-aligned bounding box.
// Circles are centered on (x, y); everything else hangs from its top-left.
func BoundingBox(obj Object) Rect {
	if ObjectType(obj.Type) == ObjectTypeCircle {
		radius := obj.Radius
		if radius == 0 {
			radius = DescriptorFor(ObjectTypeCircle).DefaultRadius
		}
		return Rect{X: obj.X - radius, Y: obj.Y - radius, W: 2 * radius, H: 2 * radius}
	}
	width, height := Size(obj)
	if ObjectType(obj.Type) == ObjectTypeLine {
		return Rect{X: obj.X, Y: obj.Y - height/2, W: width, H: height}
	}
	return Rect{X: obj.X, Y: obj.Y, W: width, H: height}
}
