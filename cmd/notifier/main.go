// cmd/notifier/main.go runs the notification worker: it drains friend
// events from the Redis queue the API server publishes to and persists them
// as notification rows, in batches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/lingopeer/lingopeer/internal/cache"
	"github.com/lingopeer/lingopeer/internal/database"
	"github.com/lingopeer/lingopeer/internal/models"
)

// NotifierService drains the friend-event queue and flushes notification
// rows to the database in batches.
type NotifierService struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []models.FriendEvent
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewNotifierService builds the worker from environment variables.
func NewNotifierService() *NotifierService {
	rdb := redis.NewClient(&redis.Options{
		Addr: cache.GetEnv("REDIS_ADDR", "localhost:6379"),
		DB:   cache.GetEnvInt("REDIS_DB", 0),
	})

	batchSize := cache.GetEnvInt("NOTIFIER_BATCH_SIZE", 20)
	ctx, cancel := context.WithCancel(context.Background())
	return &NotifierService{
		redisClient: rdb,
		queueName:   cache.GetEnv("FRIEND_EVENTS_QUEUE", cache.DefaultQueueName),
		batchSize:   batchSize,
		flushDelay:  time.Duration(cache.GetEnvInt("NOTIFIER_FLUSH_MS", 500)) * time.Millisecond,
		batch:       make([]models.FriendEvent, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects the database and loops until the context is cancelled.
func (ns *NotifierService) Run() {
	database.ConnectDB()

	go ns.readQueueLoop()

	log.Println("lingopeer-notifier service started.")
	<-ns.ctx.Done()
	ns.flushBatch()
	log.Println("lingopeer-notifier shutting down.")
}

func (ns *NotifierService) Stop() {
	ns.cancelFn()
}

// readQueueLoop pops events with BLPop, accumulating a batch and flushing
// on size or on the ticker.
func (ns *NotifierService) readQueueLoop() {
	ticker := time.NewTicker(ns.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ns.ctx.Done():
			return

		case <-ticker.C:
			ns.flushBatch()

		default:
			// BLPop with a short timeout so cancellation is noticed.
			res, err := ns.redisClient.BLPop(ns.ctx, 3*time.Second, ns.queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if ns.ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var ev models.FriendEvent
			if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
				log.Printf("invalid friend event: %v\n", err)
				continue
			}
			ns.appendToBatch(ev)
		}
	}
}

func (ns *NotifierService) appendToBatch(ev models.FriendEvent) {
	ns.batchMu.Lock()
	defer ns.batchMu.Unlock()

	ns.batch = append(ns.batch, ev)
	if len(ns.batch) >= ns.batchSize {
		ns.flushBatchLocked()
	}
}

func (ns *NotifierService) flushBatch() {
	ns.batchMu.Lock()
	defer ns.batchMu.Unlock()
	ns.flushBatchLocked()
}

// flushBatchLocked writes the whole batch in one transaction. Must hold
// batchMu.
func (ns *NotifierService) flushBatchLocked() {
	if len(ns.batch) == 0 {
		return
	}
	events := make([]models.FriendEvent, len(ns.batch))
	copy(events, ns.batch)
	ns.batch = ns.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, ev := range events {
			n, ok := notificationFor(ev)
			if !ok {
				continue
			}
			if err := database.InsertNotificationTx(ctx, tx, n); err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatch: %v\n", err)
	} else {
		log.Printf("Flushed %d friend events to DB.\n", len(events))
	}
}

// notificationFor converts an event to the row for the user who should see
// it. Events with no target (unknown type) are dropped.
func notificationFor(ev models.FriendEvent) (models.Notification, bool) {
	target := ev.Notify()
	if target == uuid.Nil {
		return models.Notification{}, false
	}
	actor := ev.SenderID
	if target == ev.SenderID {
		actor = ev.RecipientID
	}
	return models.Notification{
		ID:        uuid.New(),
		UserID:    target,
		ActorID:   actor,
		Type:      ev.Type,
		RequestID: ev.RequestID,
	}, true
}

func main() {
	ns := NewNotifierService()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		ns.Stop()
	}()

	ns.Run()
}
