package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/artzymeri/miteinander/internal/models"
)

const notificationTTL = 7 * 24 * time.Hour

// RedisStore handles Redis operations: the offline-notification inbox and
// rate-limit counters. Both are advisory; losing Redis degrades the service
// but does not break messaging.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// inboxKey returns the key for an identity's notification inbox.
func inboxKey(userKey string) string {
	return fmt.Sprintf("notify:%s:inbox", userKey)
}

// rateLimitKey returns the key for a rate limit counter.
func rateLimitKey(bucket, subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", bucket, subject)
}

// QueueNotification stores a personal-room event for an identity that had no
// live connection when it fired.
func (s *RedisStore) QueueNotification(ctx context.Context, userKey, event string, payload json.RawMessage) error {
	n := models.Notification{
		ID:        ulid.Make().String(),
		UserKey:   userKey,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	key := inboxKey(userKey)
	err = s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(n.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	s.client.Expire(ctx, key, notificationTTL)
	return nil
}

// GetNotifications retrieves queued notifications for an identity, newest
// first.
func (s *RedisStore) GetNotifications(ctx context.Context, userKey string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	key := inboxKey(userKey)
	results, err := s.client.ZRevRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]models.Notification, 0, len(results))
	for _, data := range results {
		var n models.Notification
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			continue
		}
		notifications = append(notifications, n)
	}

	return notifications, nil
}

// ClearNotifications drops an identity's inbox after the client has fetched
// it.
func (s *RedisStore) ClearNotifications(ctx context.Context, userKey string) error {
	return s.client.Del(ctx, inboxKey(userKey)).Err()
}

// IncrRateLimit bumps a fixed-window counter and returns the new count.
// The TTL is set on first increment of the window.
func (s *RedisStore) IncrRateLimit(ctx context.Context, bucket, subject string, window time.Duration) (int64, error) {
	key := rateLimitKey(bucket, subject)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
