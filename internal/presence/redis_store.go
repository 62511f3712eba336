package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps presence records under per-user keys whose TTL doubles
// as the staleness cutoff: a peer that stops writing simply expires. The
// feed is poll-driven, so Watch returns an idle stream and consumers rely
// on the tracker's periodic refilter.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("presence redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func presenceKey(boardID, userID string) string {
	return fmt.Sprintf("presence:board:%s:user:%s", boardID, userID)
}

func presencePattern(boardID string) string {
	return fmt.Sprintf("presence:board:%s:user:*", boardID)
}

// Upsert writes the full record with the staleness TTL.
func (s *RedisStore) Upsert(ctx context.Context, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("presence redis marshal: %w", err)
	}
	return s.client.Set(ctx, presenceKey(record.BoardID, record.UserID), payload, s.ttl).Err()
}

// UpdateCursor rewrites the record with the new cursor, refreshing the TTL.
func (s *RedisStore) UpdateCursor(ctx context.Context, boardID, userID string, x, y float64, seenAt time.Time) error {
	record, err := s.get(ctx, boardID, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("presence redis: record not found for %s on %s", userID, boardID)
	}
	record.CursorX = x
	record.CursorY = y
	record.LastSeenMillis = seenAt.UnixMilli()
	return s.Upsert(ctx, *record)
}

// Heartbeat extends the key's TTL and refreshes last-seen.
func (s *RedisStore) Heartbeat(ctx context.Context, boardID, userID string, seenAt time.Time) error {
	record, err := s.get(ctx, boardID, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("presence redis: record not found for %s on %s", userID, boardID)
	}
	record.LastSeenMillis = seenAt.UnixMilli()
	return s.Upsert(ctx, *record)
}

// Remove deletes the user's key.
func (s *RedisStore) Remove(ctx context.Context, boardID, userID string) error {
	return s.client.Del(ctx, presenceKey(boardID, userID)).Err()
}

// List scans the board's presence keys and decodes the live records.
func (s *RedisStore) List(ctx context.Context, boardID string) ([]Record, error) {
	var records []Record
	iter := s.client.Scan(ctx, 0, presencePattern(boardID), 100).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("presence redis list: %w", err)
		}
		var record Record
		if err := json.Unmarshal(payload, &record); err != nil {
			continue
		}
		record.BoardID = boardID
		records = append(records, record)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("presence redis scan: %w", err)
	}
	return records, nil
}

// Watch returns an idle stream; redis presence has no push channel and the
// tracker's refilter polls List instead.
func (s *RedisStore) Watch(ctx context.Context, boardID string) (<-chan Record, func()) {
	stream := make(chan Record)
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		close(stream)
	}()
	return stream, cancel
}

// Close releases the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, boardID, userID string) (*Record, error) {
	payload, err := s.client.Get(ctx, presenceKey(boardID, userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("presence redis get: %w", err)
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("presence redis decode: %w", err)
	}
	record.BoardID = boardID
	return &record, nil
}
