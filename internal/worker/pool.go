package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueSyncRetry = "jobs:sync_retry"

// SyncJob is the envelope for a deferred synchronization attempt. Attempts
// counts every execution so far; the pool moves the job to the DLQ once
// MaxRetries is exhausted.
type SyncJob struct {
	ItemID   string `json:"item_id"`
	Attempts int    `json:"attempts"`
}

// Dispatcher enqueues retry jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueSyncRetry schedules a failed acquisition item for another attempt.
func (d *Dispatcher) EnqueueSyncRetry(ctx context.Context, job SyncJob) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueSyncRetry, encoded).Err()
}

// PoolConfig holds all dependencies for the retry worker pool.
type PoolConfig struct {
	RDB        *redis.Client
	Suppliers  repository.SupplierRepository
	Sync       service.SyncService
	MaxRetries int
	NumWorkers int
}

// StartWorkerPool launches NumWorkers goroutines consuming the retry queue.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, cfg PoolConfig) {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 5
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	for i := 0; i < cfg.NumWorkers; i++ {
		go runWorker(ctx, cfg, i)
	}
	if n, err := DLQLength(ctx, cfg.RDB, QueueSyncRetry); err == nil && n > 0 {
		log.Warn().Int64("entries", n).Msg("dead letter queue is not empty")
	}
	log.Info().Msgf("worker pool started with %d workers", cfg.NumWorkers)
}

func runWorker(ctx context.Context, cfg PoolConfig, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := cfg.RDB.BRPop(ctx, 5*time.Second, QueueSyncRetry).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processSyncJob(ctx, cfg, result[1])
		}
	}
}

func processSyncJob(ctx context.Context, cfg PoolConfig, raw string) {
	var job SyncJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal sync job")
		return
	}
	job.Attempts++

	err := attemptSync(ctx, cfg, job)
	if err == nil {
		log.Info().Str("item_id", job.ItemID).Int("attempts", job.Attempts).
			Msg("sync retry succeeded")
		return
	}

	if job.Attempts >= cfg.MaxRetries {
		payload, _ := json.Marshal(job)
		SendToDLQ(ctx, cfg.RDB, QueueSyncRetry, "sync_retry", payload, err.Error(), job.Attempts)
		return
	}

	// Delay before re-enqueueing so a struggling database gets air.
	log.Warn().Err(err).Str("item_id", job.ItemID).Int("attempts", job.Attempts).
		Msg("sync retry failed, re-enqueueing")
	select {
	case <-ctx.Done():
		return
	case <-time.After(backoff(job.Attempts)):
	}
	encoded, _ := json.Marshal(job)
	if err := cfg.RDB.LPush(ctx, QueueSyncRetry, encoded).Err(); err != nil {
		log.Error().Err(err).Str("item_id", job.ItemID).Msg("failed to re-enqueue sync job")
	}
}

func attemptSync(ctx context.Context, cfg PoolConfig, job SyncJob) error {
	id, err := uuid.Parse(job.ItemID)
	if err != nil {
		return err
	}
	item, err := cfg.Suppliers.FindItem(ctx, id)
	if err != nil {
		return err
	}
	result, err := cfg.Sync.SynchronizeItem(ctx, item)
	if err != nil {
		return err
	}
	if !result.Success {
		return errSyncIncomplete(result.Errors)
	}
	return nil
}

type errSyncIncomplete []string

func (e errSyncIncomplete) Error() string {
	if len(e) == 0 {
		return "sync incomplete"
	}
	return "sync incomplete: " + e[0]
}

// backoff doubles per attempt: 2s, 4s, 8s... capped at one minute.
func backoff(attempts int) time.Duration {
	d := 2 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= time.Minute {
			return time.Minute
		}
	}
	return d
}
