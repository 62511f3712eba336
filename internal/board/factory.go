package board

// Descriptor holds the per-type defaults applied when a new object is
// created by a tool click or a batched action. Unknown type tags resolve
// to a no-op descriptor so a malformed record never crashes the canvas.
type Descriptor struct {
	Type           ObjectType
	DefaultWidth   float64
	DefaultHeight  float64
	DefaultRadius  float64
	DefaultFontSize float64
	DefaultStroke  float64
	DefaultColor   string
	TextBearing    bool
	PinsZIndexZero bool
	Known          bool
}

var descriptorTable = map[ObjectType]Descriptor{
	ObjectTypeStickyNote: {
		Type:          ObjectTypeStickyNote,
		DefaultWidth:  200,
		DefaultHeight: 150,
		DefaultColor:  TypeDefaultColors[ObjectTypeStickyNote],
		TextBearing:   true,
		Known:         true,
	},
	ObjectTypeRectangle: {
		Type:          ObjectTypeRectangle,
		DefaultWidth:  120,
		DefaultHeight: 120,
		DefaultColor:  TypeDefaultColors[ObjectTypeRectangle],
		Known:         true,
	},
	ObjectTypeCircle: {
		Type:          ObjectTypeCircle,
		DefaultRadius: 60,
		DefaultColor:  TypeDefaultColors[ObjectTypeCircle],
		Known:         true,
	},
	ObjectTypeLine: {
		Type:          ObjectTypeLine,
		DefaultWidth:  150,
		DefaultStroke: 3,
		DefaultColor:  TypeDefaultColors[ObjectTypeLine],
		Known:         true,
	},
	ObjectTypeText: {
		Type:            ObjectTypeText,
		DefaultWidth:    200,
		DefaultFontSize: 20,
		DefaultColor:    TypeDefaultColors[ObjectTypeText],
		TextBearing:     true,
		Known:           true,
	},
	ObjectTypeFrame: {
		Type:           ObjectTypeFrame,
		DefaultWidth:   400,
		DefaultHeight:  300,
		DefaultColor:   TypeDefaultColors[ObjectTypeFrame],
		TextBearing:    true,
		PinsZIndexZero: true,
		Known:          true,
	},
	ObjectTypeConnector: {
		Type:          ObjectTypeConnector,
		DefaultStroke: 2,
		DefaultColor:  TypeDefaultColors[ObjectTypeLine],
		Known:         true,
	},
}

// DescriptorFor looks up the descriptor for a type tag. Unrecognized tags
// return a zero descriptor with Known=false; callers treat it as a no-op.
func DescriptorFor(objectType ObjectType) Descriptor {
	if descriptor, ok := descriptorTable[objectType]; ok {
		return descriptor
	}
	return Descriptor{Type: objectType}
}

// NextZIndex implements the paint-order rule: frames pin to zero so they
// always paint behind, every other type stacks above the current count.
func NextZIndex(objectType ObjectType, currentCount int64) int64 {
	if DescriptorFor(objectType).PinsZIndexZero {
		return 0
	}
	return currentCount + 1
}

// NewObject builds a board object of the given type at a canvas point with
// type defaults filled in. The color argument overrides the type default
// when non-empty. Provenance is left blank for the store client to stamp.
func NewObject(objectType ObjectType, x, y float64, color string, currentCount int64) Object {
	descriptor := DescriptorFor(objectType)
	if color == "" {
		color = descriptor.DefaultColor
	}
	obj := Object{
		Type:        string(objectType),
		X:           x,
		Y:           y,
		Width:       descriptor.DefaultWidth,
		Height:      descriptor.DefaultHeight,
		Radius:      descriptor.DefaultRadius,
		FontSize:    descriptor.DefaultFontSize,
		StrokeWidth: descriptor.DefaultStroke,
		Color:       color,
		Rotation:    0,
		ZIndex:      NextZIndex(objectType, currentCount),
	}
	if objectType == ObjectTypeConnector {
		obj.StrokeColor = descriptor.DefaultColor
		obj.ArrowEnd = true
	}
	return obj
}
