package presence

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock advances only when told to, keeping throttle and staleness
// behavior deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryStore records calls for assertions.
type memoryStore struct {
	mu          sync.Mutex
	records     map[string]Record
	cursorCalls int
	heartbeats  int
	removeErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]Record)}
}

func (s *memoryStore) Upsert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = record
	return nil
}

func (s *memoryStore) UpdateCursor(_ context.Context, _, userID string, x, y float64, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorCalls++
	record := s.records[userID]
	record.UserID = userID
	record.CursorX = x
	record.CursorY = y
	record.LastSeenMillis = seenAt.UnixMilli()
	s.records[userID] = record
	return nil
}

func (s *memoryStore) Heartbeat(_ context.Context, _, userID string, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
	record := s.records[userID]
	record.UserID = userID
	record.LastSeenMillis = seenAt.UnixMilli()
	s.records[userID] = record
	return nil
}

func (s *memoryStore) Remove(_ context.Context, _, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.records, userID)
	return nil
}

func (s *memoryStore) List(_ context.Context, _ string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	return records, nil
}

func (s *memoryStore) Watch(ctx context.Context, _ string) (<-chan Record, func()) {
	stream := make(chan Record)
	go func() {
		<-ctx.Done()
	}()
	return stream, func() {}
}

func (s *memoryStore) cursorCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursorCalls
}

func (s *memoryStore) heartbeatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}

func newTestTracker(t *testing.T, store Store, clock *fakeClock) *Tracker {
	t.Helper()
	tracker, err := NewTracker(TrackerConfig{
		Store:       store,
		BoardID:     "board-1",
		UserID:      "user-local",
		DisplayName: "Local",
		Clock:       clock.Now,
	})
	if err != nil {
		t.Fatalf("unexpected tracker error: %v", err)
	}
	return tracker
}

func TestJoinRegistersRecordAtOrigin(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	tracker := newTestTracker(t, store, clock)
	ctx := context.Background()

	if err := tracker.Join(ctx); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tracker.Leave(ctx)

	record, ok := store.records["user-local"]
	if !ok {
		t.Fatalf("join must upsert the presence record")
	}
	if record.CursorX != 0 || record.CursorY != 0 {
		t.Fatalf("initial cursor must sit at the origin")
	}
	if record.Color != CursorColor("user-local") {
		t.Fatalf("color must derive from the user id")
	}
}

func TestUpdateCursorThrottles(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	tracker := newTestTracker(t, store, clock)
	ctx := context.Background()
	if err := tracker.Join(ctx); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tracker.Leave(ctx)

	clock.Advance(DefaultThrottle)
	tracker.UpdateCursor(ctx, 1, 1)
	tracker.UpdateCursor(ctx, 2, 2) // same instant, discarded
	clock.Advance(10 * time.Millisecond)
	tracker.UpdateCursor(ctx, 3, 3) // inside the window, discarded
	clock.Advance(DefaultThrottle)
	tracker.UpdateCursor(ctx, 4, 4)

	if calls := store.cursorCallCount(); calls != 2 {
		t.Fatalf("expected 2 cursor writes, got %d", calls)
	}
}

func TestPeersFiltersStaleRecords(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	tracker := newTestTracker(t, store, clock)
	ctx := context.Background()

	fresh := Record{BoardID: "board-1", UserID: "peer-fresh", LastSeenMillis: clock.Now().UnixMilli()}
	stale := Record{BoardID: "board-1", UserID: "peer-stale", LastSeenMillis: clock.Now().Add(-3 * time.Minute).UnixMilli()}
	store.Upsert(ctx, fresh)
	store.Upsert(ctx, stale)

	if err := tracker.Join(ctx); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tracker.Leave(ctx)

	peers := tracker.Peers()
	if len(peers) != 1 || peers[0].UserID != "peer-fresh" {
		t.Fatalf("unexpected peers %+v", peers)
	}
}

func TestPeersAgeOutWithoutNewPushes(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	tracker := newTestTracker(t, store, clock)
	ctx := context.Background()

	peer := Record{BoardID: "board-1", UserID: "peer", LastSeenMillis: clock.Now().UnixMilli()}
	store.Upsert(ctx, peer)
	if err := tracker.Join(ctx); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tracker.Leave(ctx)

	if len(tracker.Peers()) != 1 {
		t.Fatalf("peer should start live")
	}
	// No store write happens, yet the peer must disappear once its
	// last-seen age crosses the threshold.
	clock.Advance(DefaultStaleAfter + time.Second)
	if len(tracker.Peers()) != 0 {
		t.Fatalf("stale peer must be filtered without a subscription event")
	}
}

func TestPeersExcludeSelf(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	tracker := newTestTracker(t, store, clock)
	ctx := context.Background()
	if err := tracker.Join(ctx); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tracker.Leave(ctx)

	for _, peer := range tracker.Peers() {
		if peer.UserID == "user-local" {
			t.Fatalf("local user must not appear in the peer list")
		}
	}
}

func TestLeaveSwallowsRemovalFailure(t *testing.T) {
	store := newMemoryStore()
	store.removeErr = context.DeadlineExceeded
	clock := newFakeClock()
	tracker := newTestTracker(t, store, clock)
	ctx := context.Background()
	if err := tracker.Join(ctx); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	tracker.Leave(ctx) // must not panic or block
}

func TestHeartbeatTicks(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	tracker, err := NewTracker(TrackerConfig{
		Store:             store,
		BoardID:           "board-1",
		UserID:            "user-local",
		Clock:             clock.Now,
		HeartbeatInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected tracker error: %v", err)
	}
	ctx := context.Background()
	if err := tracker.Join(ctx); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tracker.Leave(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for store.heartbeatCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("heartbeat loop never ticked, count %d", store.heartbeatCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHeartbeatPausesWhileHiddenAndRefiresOnVisible(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	tracker, err := NewTracker(TrackerConfig{
		Store:             store,
		BoardID:           "board-1",
		UserID:            "user-local",
		Clock:             clock.Now,
		HeartbeatInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected tracker error: %v", err)
	}
	ctx := context.Background()
	if err := tracker.Join(ctx); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tracker.Leave(ctx)

	tracker.SetHidden(ctx, true)
	// A tick already past the hidden check may still land; sample after
	// the loop has settled.
	time.Sleep(30 * time.Millisecond)
	paused := store.heartbeatCount()
	time.Sleep(50 * time.Millisecond)
	if count := store.heartbeatCount(); count != paused {
		t.Fatalf("heartbeats kept firing while hidden: %d -> %d", paused, count)
	}

	tracker.SetHidden(ctx, false)
	if count := store.heartbeatCount(); count <= paused {
		t.Fatalf("becoming visible must re-fire the heartbeat at once, got %d after %d", count, paused)
	}
}

func TestCursorColorIsDeterministic(t *testing.T) {
	first := CursorColor("user-abc")
	second := CursorColor("user-abc")
	if first != second {
		t.Fatalf("cursor color must be stable for one id")
	}
	found := false
	for _, color := range CursorPalette {
		if color == first {
			found = true
		}
	}
	if !found {
		t.Fatalf("cursor color %q not in the palette", first)
	}
}
