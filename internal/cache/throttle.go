package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptCounter is a fixed-window counter backed by INCR + EXPIRE.
type AttemptCounter struct {
	client redis.UniversalClient
	prefix string
}

func NewAttemptCounter(client redis.UniversalClient) *AttemptCounter {
	return &AttemptCounter{client: client, prefix: "auth:throttle"}
}

// Hit records one attempt for key and returns the count within the current window.
func (c *AttemptCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	full := c.prefix + ":" + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, full)
	pipe.ExpireNX(ctx, full, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("throttle hit: %w", err)
	}
	return incr.Val(), nil
}
