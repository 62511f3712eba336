package actions

import (
	"context"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/inkwelllabs/corkboard/internal/board"
	"github.com/inkwelllabs/corkboard/internal/store"
)

func newTestExecutor(t *testing.T) (*Executor, *store.Client) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// One connection max, or pooled connections each see their own
	// empty in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to unwrap database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&board.Object{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	client, err := store.NewClient(store.ClientConfig{
		Database: db,
		Clock:    func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	return NewExecutor(client, nil), client
}

func TestExecuteCreatesThenConnector(t *testing.T) {
	executor, client := newTestExecutor(t)
	ctx := context.Background()

	result := executor.Execute(ctx, "board-1", []Action{
		{Type: ActionTypeCreate, ObjectType: "stickyNote", Properties: map[string]any{"x": 0.0, "y": 0.0, "text": "first"}},
		{Type: ActionTypeCreate, ObjectType: "stickyNote", Properties: map[string]any{"x": 400.0, "y": 0.0, "text": "second"}},
		{Type: ActionTypeCreate, ObjectType: "connector", Properties: map[string]any{"fromId": "$0", "toId": "$1"}},
	}, "user-1")

	if result.SuccessCount != 3 || result.ErrorCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.CreatedIDs) != 3 {
		t.Fatalf("expected 3 created ids, got %d", len(result.CreatedIDs))
	}

	objects, err := client.List(ctx, "board-1")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(objects))
	}
	// "$0" and "$1" resolve to the ids of the notes created moments before.
	var connector board.Object
	for _, obj := range objects {
		if obj.IsConnector() {
			connector = obj
		}
	}
	if connector.FromID != result.CreatedIDs[0] || connector.ToID != result.CreatedIDs[1] {
		t.Fatalf("connector endpoints not resolved: from=%q to=%q", connector.FromID, connector.ToID)
	}
}

func TestExecuteConnectorReferencesJustCreatedIDs(t *testing.T) {
	executor, client := newTestExecutor(t)
	ctx := context.Background()

	first := executor.Execute(ctx, "board-1", []Action{
		{Type: ActionTypeCreate, ObjectType: "stickyNote", Properties: map[string]any{"x": 0.0, "y": 0.0}},
		{Type: ActionTypeCreate, ObjectType: "stickyNote", Properties: map[string]any{"x": 400.0, "y": 0.0}},
	}, "user-1")
	if first.SuccessCount != 2 {
		t.Fatalf("seed creates failed: %+v", first)
	}

	second := executor.Execute(ctx, "board-1", []Action{
		{Type: ActionTypeCreate, ObjectType: "connector", Properties: map[string]any{
			"fromId": first.CreatedIDs[0],
			"toId":   first.CreatedIDs[1],
		}},
	}, "user-1")
	if second.SuccessCount != 1 || second.ErrorCount != 0 {
		t.Fatalf("unexpected result %+v", second)
	}

	conn, err := client.Get(ctx, "board-1", second.CreatedIDs[0])
	if err != nil || conn == nil {
		t.Fatalf("missing connector: %v", err)
	}
	if conn.FromID != first.CreatedIDs[0] || conn.ToID != first.CreatedIDs[1] {
		t.Fatalf("connector references wrong ids: %+v", conn)
	}
	// Endpoints cached from the endpoint centers: sticky note defaults
	// are 200x150, so centers sit at (100, 75) and (500, 75).
	if conn.FromX != 100 || conn.FromY != 75 || conn.ToX != 500 || conn.ToY != 75 {
		t.Fatalf("unexpected cached endpoints %+v", conn)
	}
}

func TestExecuteFramePinsZIndexAndOthersStack(t *testing.T) {
	executor, client := newTestExecutor(t)
	ctx := context.Background()

	result := executor.Execute(ctx, "board-1", []Action{
		{Type: ActionTypeCreate, ObjectType: "frame", Properties: map[string]any{"x": 0.0, "y": 0.0, "title": "group"}},
		{Type: ActionTypeCreate, ObjectType: "rectangle", Properties: map[string]any{"x": 10.0, "y": 10.0}},
	}, "user-1")
	if result.ErrorCount != 0 {
		t.Fatalf("unexpected errors %+v", result)
	}

	frame, err := client.Get(ctx, "board-1", result.CreatedIDs[0])
	if err != nil || frame == nil {
		t.Fatalf("missing frame: %v", err)
	}
	if frame.ZIndex != 0 {
		t.Fatalf("frame must pin zIndex 0, got %d", frame.ZIndex)
	}
	rect, err := client.Get(ctx, "board-1", result.CreatedIDs[1])
	if err != nil || rect == nil {
		t.Fatalf("missing rectangle: %v", err)
	}
	if rect.ZIndex != 2 {
		t.Fatalf("rectangle should stack above count, got %d", rect.ZIndex)
	}
}

func TestExecuteUpdateAndDeletePartitions(t *testing.T) {
	executor, client := newTestExecutor(t)
	ctx := context.Background()

	seed := executor.Execute(ctx, "board-1", []Action{
		{Type: ActionTypeCreate, ObjectType: "stickyNote", Properties: map[string]any{"x": 0.0, "y": 0.0, "text": "keep"}},
		{Type: ActionTypeCreate, ObjectType: "stickyNote", Properties: map[string]any{"x": 50.0, "y": 0.0, "text": "drop"}},
	}, "user-1")

	result := executor.Execute(ctx, "board-1", []Action{
		{Type: ActionTypeUpdate, ObjectID: seed.CreatedIDs[0], Properties: map[string]any{"text": "kept"}},
		{Type: ActionTypeDelete, ObjectID: seed.CreatedIDs[1]},
	}, "user-2")
	if result.SuccessCount != 2 || result.ErrorCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	kept, err := client.Get(ctx, "board-1", seed.CreatedIDs[0])
	if err != nil || kept == nil {
		t.Fatalf("missing updated object: %v", err)
	}
	if kept.Text != "kept" {
		t.Fatalf("update not applied: %q", kept.Text)
	}
	gone, err := client.Get(ctx, "board-1", seed.CreatedIDs[1])
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if gone != nil {
		t.Fatalf("deleted object still present")
	}
}

func TestExecuteFailedPartitionDoesNotAbortOthers(t *testing.T) {
	executor, client := newTestExecutor(t)
	ctx := context.Background()

	result := executor.Execute(ctx, "board-1", []Action{
		{Type: ActionTypeUpdate, ObjectID: "missing", Properties: map[string]any{"x": 1.0}},
		{Type: ActionTypeCreate, ObjectType: "stickyNote", Properties: map[string]any{"x": 0.0, "y": 0.0}},
	}, "user-1")
	if result.ErrorCount != 1 {
		t.Fatalf("failed update partition should count one error, got %+v", result)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("create partition should still run, got %+v", result)
	}

	count, err := client.Count(ctx, "board-1")
	if err != nil {
		t.Fatalf("unexpected count error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the create to land, got %d objects", count)
	}
}
