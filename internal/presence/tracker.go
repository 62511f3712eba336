// Package presence publishes the local user's cursor and liveness to a
// board and maintains the filtered list of live peers. Cursor writes are
// throttled, liveness rides on a heartbeat, and peers age out past a
// staleness threshold even when nobody writes.
package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultThrottle caps cursor writes at roughly 15 per second.
	DefaultThrottle = 66 * time.Millisecond
	// DefaultHeartbeatInterval keeps idle-but-connected users fresh.
	DefaultHeartbeatInterval = 30 * time.Second
	// DefaultStaleAfter is the last-seen age past which a peer is gone.
	DefaultStaleAfter = 2 * time.Minute
	// DefaultRefilterInterval ages peers out between subscription pushes.
	DefaultRefilterInterval = 60 * time.Second
)

var (
	errMissingStore  = errors.New("presence: store is required")
	errMissingBoard  = errors.New("presence: board id is required")
	errMissingUser   = errors.New("presence: user id is required")
	errAlreadyJoined = errors.New("presence: already joined")
)

// TrackerConfig describes one user's presence session on one board.
type TrackerConfig struct {
	Store             Store
	BoardID           string
	UserID            string
	DisplayName       string
	Clock             func() time.Time
	Throttle          time.Duration
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	RefilterInterval  time.Duration
	Logger            *zap.Logger
}

// Tracker owns the publish loop, the heartbeat and refilter timers, and
// the peer cache. All timers stop on Close.
type Tracker struct {
	store             Store
	boardID           string
	userID            string
	displayName       string
	clock             func() time.Time
	throttle          time.Duration
	heartbeatInterval time.Duration
	staleAfter        time.Duration
	refilterInterval  time.Duration
	logger            *zap.Logger

	mu            sync.Mutex
	joined        bool
	hidden        bool
	lastCursorPub time.Time
	peers         map[string]Record

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker validates the configuration and returns an idle tracker;
// call Join to go live.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.BoardID == "" {
		return nil, errMissingBoard
	}
	if cfg.UserID == "" {
		return nil, errMissingUser
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = "Anonymous"
	}
	tracker := &Tracker{
		store:             cfg.Store,
		boardID:           cfg.BoardID,
		userID:            cfg.UserID,
		displayName:       displayName,
		clock:             clock,
		throttle:          cfg.Throttle,
		heartbeatInterval: cfg.HeartbeatInterval,
		staleAfter:        cfg.StaleAfter,
		refilterInterval:  cfg.RefilterInterval,
		logger:            logger,
		peers:             make(map[string]Record),
	}
	if tracker.throttle <= 0 {
		tracker.throttle = DefaultThrottle
	}
	if tracker.heartbeatInterval <= 0 {
		tracker.heartbeatInterval = DefaultHeartbeatInterval
	}
	if tracker.staleAfter <= 0 {
		tracker.staleAfter = DefaultStaleAfter
	}
	if tracker.refilterInterval <= 0 {
		tracker.refilterInterval = DefaultRefilterInterval
	}
	return tracker, nil
}

// Color returns the local user's deterministic cursor color.
func (t *Tracker) Color() string {
	return CursorColor(t.userID)
}

// Join registers the presence record with cursor (0,0), subscribes to peer
// pushes, and starts the heartbeat and refilter loops.
func (t *Tracker) Join(ctx context.Context) error {
	t.mu.Lock()
	if t.joined {
		t.mu.Unlock()
		return errAlreadyJoined
	}
	t.joined = true
	loopCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	t.mu.Unlock()

	record := Record{
		BoardID:        t.boardID,
		UserID:         t.userID,
		DisplayName:    t.displayName,
		Color:          CursorColor(t.userID),
		CursorX:        0,
		CursorY:        0,
		LastSeenMillis: t.clock().UnixMilli(),
	}
	if err := t.store.Upsert(ctx, record); err != nil {
		t.mu.Lock()
		t.joined = false
		t.cancel = nil
		t.mu.Unlock()
		cancel()
		return err
	}

	if records, err := t.store.List(ctx, t.boardID); err == nil {
		t.replacePeers(records)
	}

	pushes, unsubscribe := t.store.Watch(loopCtx, t.boardID)
	go t.run(loopCtx, pushes, unsubscribe)
	return nil
}

func (t *Tracker) run(ctx context.Context, pushes <-chan Record, unsubscribe func()) {
	defer close(t.done)
	defer unsubscribe()

	heartbeat := time.NewTicker(t.heartbeatInterval)
	defer heartbeat.Stop()
	refilter := time.NewTicker(t.refilterInterval)
	defer refilter.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case record, ok := <-pushes:
			if !ok {
				pushes = nil
				continue
			}
			t.applyPush(record)
		case <-heartbeat.C:
			t.mu.Lock()
			hidden := t.hidden
			t.mu.Unlock()
			if hidden {
				continue
			}
			if err := t.store.Heartbeat(ctx, t.boardID, t.userID, t.clock()); err != nil {
				t.logger.Warn("presence heartbeat failed", zap.Error(err))
			}
		case <-refilter.C:
			if records, err := t.store.List(ctx, t.boardID); err == nil {
				t.replacePeers(records)
			} else {
				t.prunePeers()
			}
		}
	}
}

// UpdateCursor publishes the local cursor position, discarding calls that
// land inside the throttle window.
func (t *Tracker) UpdateCursor(ctx context.Context, x, y float64) {
	now := t.clock()
	t.mu.Lock()
	if !t.joined || now.Sub(t.lastCursorPub) < t.throttle {
		t.mu.Unlock()
		return
	}
	t.lastCursorPub = now
	t.mu.Unlock()

	if err := t.store.UpdateCursor(ctx, t.boardID, t.userID, x, y, now); err != nil {
		t.logger.Warn("presence cursor update failed", zap.Error(err))
	}
}

// SetHidden pauses the heartbeat while the tab is hidden and re-fires it
// immediately on becoming visible again.
func (t *Tracker) SetHidden(ctx context.Context, hidden bool) {
	t.mu.Lock()
	wasHidden := t.hidden
	t.hidden = hidden
	joined := t.joined
	t.mu.Unlock()

	if joined && wasHidden && !hidden {
		if err := t.store.Heartbeat(ctx, t.boardID, t.userID, t.clock()); err != nil {
			t.logger.Warn("presence heartbeat failed", zap.Error(err))
		}
	}
}

// Peers returns the live peer list: everyone but the local user whose
// last-seen age is within the staleness threshold.
func (t *Tracker) Peers() []Record {
	cutoff := t.clock().Add(-t.staleAfter)
	t.mu.Lock()
	defer t.mu.Unlock()
	peers := make([]Record, 0, len(t.peers))
	for _, record := range t.peers {
		if record.LastSeen().Before(cutoff) {
			continue
		}
		peers = append(peers, record)
	}
	return peers
}

// Leave removes the presence record best-effort and stops the loops.
// Removal failures are swallowed: the auth token may already be gone and
// peers will age the record out regardless.
func (t *Tracker) Leave(ctx context.Context) {
	t.mu.Lock()
	joined := t.joined
	t.joined = false
	cancel := t.cancel
	t.cancel = nil
	done := t.done
	t.mu.Unlock()

	if !joined {
		return
	}
	if err := t.store.Remove(ctx, t.boardID, t.userID); err != nil {
		t.logger.Debug("presence leave failed", zap.Error(err))
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (t *Tracker) applyPush(record Record) {
	if record.UserID == t.userID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if record.LastSeenMillis == 0 {
		delete(t.peers, record.UserID)
		return
	}
	t.peers[record.UserID] = record
}

func (t *Tracker) replacePeers(records []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers = make(map[string]Record, len(records))
	for _, record := range records {
		if record.UserID == t.userID {
			continue
		}
		t.peers[record.UserID] = record
	}
}

func (t *Tracker) prunePeers() {
	cutoff := t.clock().Add(-t.staleAfter)
	t.mu.Lock()
	defer t.mu.Unlock()
	for userID, record := range t.peers {
		if record.LastSeen().Before(cutoff) {
			delete(t.peers, userID)
		}
	}
}
