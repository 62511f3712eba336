package session

import "github.com/inkwelllabs/corkboard/internal/board"

// Tool is the single global interaction mode. Switching tools never
// implicitly clears the selection.
type Tool string

const (
	ToolSelect     Tool = "SELECT"
	ToolStickyNote Tool = "STICKY_NOTE"
	ToolRectangle  Tool = "RECTANGLE"
	ToolCircle     Tool = "CIRCLE"
	ToolLine       Tool = "LINE"
	ToolText       Tool = "TEXT"
	ToolFrame      Tool = "FRAME"
	ToolConnector  Tool = "CONNECTOR"
)

var toolCreations = map[Tool]board.ObjectType{
	ToolStickyNote: board.ObjectTypeStickyNote,
	ToolRectangle:  board.ObjectTypeRectangle,
	ToolCircle:     board.ObjectTypeCircle,
	ToolLine:       board.ObjectTypeLine,
	ToolText:       board.ObjectTypeText,
	ToolFrame:      board.ObjectTypeFrame,
}

// CreatesType returns the object type a creation tool produces. SELECT and
// CONNECTOR are not creation tools.
func (t Tool) CreatesType() (board.ObjectType, bool) {
	objectType, ok := toolCreations[t]
	return objectType, ok
}

// Key identifies the keyboard shortcuts the canvas reacts to.
type Key string

const (
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "Backspace"
	KeyEscape    Key = "Escape"
	KeyDuplicate Key = "Duplicate"
	KeyCopy      Key = "Copy"
	KeyPaste     Key = "Paste"
)
