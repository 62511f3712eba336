package board

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidObjectID indicates that an object identifier is empty or exceeds storage bounds.
	ErrInvalidObjectID = errors.New("board: invalid object id")
	// ErrInvalidBoardID indicates that a board identifier is empty or exceeds storage bounds.
	ErrInvalidBoardID = errors.New("board: invalid board id")
)

// ObjectID represents a validated board object identifier.
type ObjectID string

// NewObjectID validates raw input and returns an ObjectID.
func NewObjectID(rawInput string) (ObjectID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidObjectID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidObjectID, maxIdentifierLength)
	}
	return ObjectID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ObjectID) String() string {
	return string(id)
}

// BoardID represents a validated board identifier.
type BoardID string

// NewBoardID validates raw input and returns a BoardID.
func NewBoardID(rawInput string) (BoardID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBoardID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidBoardID, maxIdentifierLength)
	}
	return BoardID(trimmed), nil
}

// String returns the underlying string identifier.
func (id BoardID) String() string {
	return string(id)
}

// ObjectType tags the closed set of shape variants a board can hold.
type ObjectType string

const (
	ObjectTypeStickyNote ObjectType = "stickyNote"
	ObjectTypeRectangle  ObjectType = "rectangle"
	ObjectTypeCircle     ObjectType = "circle"
	ObjectTypeLine       ObjectType = "line"
	ObjectTypeText       ObjectType = "text"
	ObjectTypeFrame      ObjectType = "frame"
	ObjectTypeConnector  ObjectType = "connector"
)

// Object models one shared, independently addressable graphical entity.
// Every write carries provenance stamped by the store client, never by callers.
type Object struct {
	ObjectID string `gorm:"column:object_id;primaryKey;size:190;not null"`
	BoardID  string `gorm:"column:board_id;primaryKey;size:190;not null;index:idx_objects_board,priority:1"`
	Type     string `gorm:"column:object_type;size:64;not null"`

	X        float64 `gorm:"column:x;not null;default:0"`
	Y        float64 `gorm:"column:y;not null;default:0"`
	Width    float64 `gorm:"column:width;not null;default:0"`
	Height   float64 `gorm:"column:height;not null;default:0"`
	Radius   float64 `gorm:"column:radius;not null;default:0"`
	Rotation float64 `gorm:"column:rotation;not null;default:0"`
	ZIndex   int64   `gorm:"column:z_index;not null;default:0"`

	Text        string  `gorm:"column:text_content;type:text;not null;default:''"`
	Title       string  `gorm:"column:title;size:500;not null;default:''"`
	FontSize    float64 `gorm:"column:font_size;not null;default:0"`
	Color       string  `gorm:"column:color;size:64;not null;default:''"`
	StrokeColor string  `gorm:"column:stroke_color;size:64;not null;default:''"`
	StrokeWidth float64 `gorm:"column:stroke_width;not null;default:0"`
	ArrowEnd    bool    `gorm:"column:arrow_end;not null;default:false"`

	FromID string  `gorm:"column:from_id;size:190;not null;default:''"`
	ToID   string  `gorm:"column:to_id;size:190;not null;default:''"`
	FromX  float64 `gorm:"column:from_x;not null;default:0"`
	FromY  float64 `gorm:"column:from_y;not null;default:0"`
	ToX    float64 `gorm:"column:to_x;not null;default:0"`
	ToY    float64 `gorm:"column:to_y;not null;default:0"`

	CreatedBy        string `gorm:"column:created_by;size:190;not null;default:''"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;default:0"`
	UpdatedBy        string `gorm:"column:updated_by;size:190;not null;default:''"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null;default:0;index:idx_objects_board,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Object) TableName() string {
	return "board_objects"
}

// IsConnector reports whether the object references two endpoint objects.
func (o Object) IsConnector() bool {
	return ObjectType(o.Type) == ObjectTypeConnector
}

// References reports whether a connector points at the given object id.
func (o Object) References(objectID string) bool {
	if !o.IsConnector() {
		return false
	}
	return o.FromID == objectID || o.ToID == objectID
}
