package board

// Palette lists the fill colors offered for board objects. The dark shade
// is used for borders and selected states.
type PaletteColor struct {
	Name  string
	Value string
	Dark  string
}

var Palette = []PaletteColor{
	{Name: "Yellow", Value: "#FDE68A", Dark: "#FCD34D"},
	{Name: "Pink", Value: "#FBCFE8", Dark: "#F9A8D4"},
	{Name: "Blue", Value: "#BFDBFE", Dark: "#93C5FD"},
	{Name: "Green", Value: "#BBF7D0", Dark: "#86EFAC"},
	{Name: "Purple", Value: "#DDD6FE", Dark: "#C4B5FD"},
	{Name: "Orange", Value: "#FED7AA", Dark: "#FDBA74"},
	{Name: "Red", Value: "#FECACA", Dark: "#FCA5A5"},
	{Name: "Gray", Value: "#E5E7EB", Dark: "#D1D5DB"},
	{Name: "Black", Value: "#1F2937", Dark: "#111827"},
}

// DefaultColor is the fill applied when neither the user nor the type
// dictates one.
var DefaultColor = Palette[0].Value

// TypeDefaultColors maps each object type to its default fill or stroke.
var TypeDefaultColors = map[ObjectType]string{
	ObjectTypeStickyNote: "#FDE68A",
	ObjectTypeRectangle:  "#E5E7EB",
	ObjectTypeCircle:     "#E5E7EB",
	ObjectTypeLine:       "#6B7280",
	ObjectTypeText:       "#374151",
	ObjectTypeFrame:      "#6B7280",
}
