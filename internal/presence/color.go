package presence

// CursorPalette lists the vivid cursor colors, deliberately distinct from
// the pastel object palette.
var CursorPalette = []string{
	"#EF4444", // red
	"#3B82F6", // blue
	"#10B981", // green
	"#F59E0B", // amber
	"#8B5CF6", // purple
	"#EC4899", // pink
	"#14B8A6", // teal
	"#F97316", // orange
}

// CursorColor derives a stable palette color from a user id, so cursor
// colors never need to be transmitted or agreed upon between clients.
func CursorColor(userID string) string {
	var hash int32
	for _, r := range userID {
		hash = int32(r) + ((hash << 5) - hash)
	}
	index := int64(hash)
	if index < 0 {
		index = -index
	}
	return CursorPalette[index%int64(len(CursorPalette))]
}
