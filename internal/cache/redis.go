// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for resolved rounds.
const DefaultQueueName = "jackpot_rounds"

// Connect creates a Redis client for addr and db and verifies it with a ping.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RoundPublisher pushes round records onto a Redis list for the historian.
type RoundPublisher struct {
	rdb   redis.Cmdable
	queue string
}

func NewRoundPublisher(rdb redis.Cmdable, queue string) *RoundPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RoundPublisher{rdb: rdb, queue: queue}
}

// Publish serializes rec to JSON and pushes it to the queue.
func (p *RoundPublisher) Publish(ctx context.Context, rec models.RoundRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
