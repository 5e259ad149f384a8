package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/edgeform/contact-gateway/internal/storage"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow tracks request timestamps for one key in a redis
// sorted set scored by nanosecond timestamp. Counting and recording
// are separate operations so a rejected request never appends a
// timestamp.
type SlidingWindow struct {
	redis  *storage.RedisClient
	window time.Duration
}

func NewSlidingWindow(redis *storage.RedisClient, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		redis:  redis,
		window: window,
	}
}

// Count prunes entries older than the window and returns how many
// remain.
func (s *SlidingWindow) Count(ctx context.Context, key string) (int64, error) {
	now := time.Now()
	windowStart := now.Add(-s.window)

	pipe := s.redis.Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))

	// Count requests in current window
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return countCmd.Val(), nil
}

// Record appends a timestamp for the current request and refreshes the
// key's expiry so idle windows clean themselves up.
func (s *SlidingWindow) Record(ctx context.Context, key string, now time.Time) error {
	if err := s.redis.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	}); err != nil {
		return err
	}

	return s.redis.Expire(ctx, key, s.window)
}

// ResetTime returns when the oldest entry leaves the window, which is
// the earliest moment a full window frees a slot.
func (s *SlidingWindow) ResetTime(ctx context.Context, key string) (time.Time, error) {
	oldest, err := s.redis.ZRange(ctx, key, 0, 0)
	if err != nil || len(oldest) == 0 {
		// No entries, window resets now
		return time.Now(), nil
	}

	var oldestNano int64
	fmt.Sscanf(oldest[0], "%d", &oldestNano)

	return time.Unix(0, oldestNano).Add(s.window), nil
}

func (s *SlidingWindow) Window() time.Duration {
	return s.window
}
