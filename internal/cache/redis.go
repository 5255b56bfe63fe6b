package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lingopeer/lingopeer/internal/models"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the friend-event stream goes to. The
// notifier worker drains it.
var DefaultQueueName = "lingopeer_friend_events"

// ConnectRedis initializes the global client from REDIS_ADDR (default
// "localhost:6379") and REDIS_DB (default 0).
func ConnectRedis() error {
	addr := GetEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := GetEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// EventQueue publishes friend events to the Redis list. Implements the
// friends.EventPublisher contract.
type EventQueue struct {
	client *redis.Client
	queue  string
}

// NewEventQueue uses the global client and the FRIEND_EVENTS_QUEUE env var
// (falling back to DefaultQueueName).
func NewEventQueue() *EventQueue {
	return &EventQueue{
		client: Rdb,
		queue:  GetEnv("FRIEND_EVENTS_QUEUE", DefaultQueueName),
	}
}

// Publish serializes the event and pushes it onto the queue. A quick
// network send; the caller does not wait on the consumer.
func (q *EventQueue) Publish(ctx context.Context, ev models.FriendEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal friend event: %w", err)
	}
	if err := q.client.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as integer, else a default.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
