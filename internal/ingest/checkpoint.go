package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checkpoints remembers the last completed page offset per crawl query in
// redis, so an interrupted crawl resumes instead of refetching from zero.
// Entries expire after the TTL; a fresh crawl then starts over.
type Checkpoints struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCheckpoints(client *redis.Client, ttl time.Duration) *Checkpoints {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Checkpoints{client: client, ttl: ttl}
}

func checkpointKey(query string) string {
	return fmt.Sprintf("crawl:%s:offset", query)
}

// Offset returns the stored resume offset for the query, zero when none.
func (c *Checkpoints) Offset(ctx context.Context, query string) (int, error) {
	val, err := c.client.Get(ctx, checkpointKey(query)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checkpoint get: %w", err)
	}
	offset, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("checkpoint parse %q: %w", val, err)
	}
	return offset, nil
}

// SetOffset records the next offset to crawl from for the query.
func (c *Checkpoints) SetOffset(ctx context.Context, query string, offset int) error {
	if err := c.client.Set(ctx, checkpointKey(query), strconv.Itoa(offset), c.ttl).Err(); err != nil {
		return fmt.Errorf("checkpoint set: %w", err)
	}
	return nil
}

// Clear removes the checkpoint once a crawl completes.
func (c *Checkpoints) Clear(ctx context.Context, query string) error {
	return c.client.Del(ctx, checkpointKey(query)).Err()
}
