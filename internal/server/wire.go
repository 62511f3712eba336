package server

import "github.com/inkwelllabs/corkboard/internal/board"

// objectPayload is the wire shape of one board object. Provenance fields
// are read-only: the store stamps them, inbound values are ignored.
type objectPayload struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Radius   float64 `json:"radius,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	ZIndex   int64   `json:"zIndex"`

	Text        string  `json:"text,omitempty"`
	Title       string  `json:"title,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
	Color       string  `json:"color,omitempty"`
	StrokeColor string  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	ArrowEnd    bool    `json:"arrowEnd,omitempty"`

	FromID string  `json:"fromId,omitempty"`
	ToID   string  `json:"toId,omitempty"`
	FromX  float64 `json:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty"`

	CreatedBy string `json:"createdBy,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedBy string `json:"updatedBy,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

func payloadFromObject(obj board.Object) objectPayload {
	return objectPayload{
		ID:          obj.ObjectID,
		Type:        obj.Type,
		X:           obj.X,
		Y:           obj.Y,
		Width:       obj.Width,
		Height:      obj.Height,
		Radius:      obj.Radius,
		Rotation:    obj.Rotation,
		ZIndex:      obj.ZIndex,
		Text:        obj.Text,
		Title:       obj.Title,
		FontSize:    obj.FontSize,
		Color:       obj.Color,
		StrokeColor: obj.StrokeColor,
		StrokeWidth: obj.StrokeWidth,
		ArrowEnd:    obj.ArrowEnd,
		FromID:      obj.FromID,
		ToID:        obj.ToID,
		FromX:       obj.FromX,
		FromY:       obj.FromY,
		ToX:         obj.ToX,
		ToY:         obj.ToY,
		CreatedBy:   obj.CreatedBy,
		CreatedAt:   obj.CreatedAtSeconds,
		UpdatedBy:   obj.UpdatedBy,
		UpdatedAt:   obj.UpdatedAtSeconds,
	}
}

func (p objectPayload) toObject() board.Object {
	return board.Object{
		Type:        p.Type,
		X:           p.X,
		Y:           p.Y,
		Width:       p.Width,
		Height:      p.Height,
		Radius:      p.Radius,
		Rotation:    p.Rotation,
		ZIndex:      p.ZIndex,
		Text:        p.Text,
		Title:       p.Title,
		FontSize:    p.FontSize,
		Color:       p.Color,
		StrokeColor: p.StrokeColor,
		StrokeWidth: p.StrokeWidth,
		ArrowEnd:    p.ArrowEnd,
		FromID:      p.FromID,
		ToID:        p.ToID,
		FromX:       p.FromX,
		FromY:       p.FromY,
		ToX:         p.ToX,
		ToY:         p.ToY,
	}
}
