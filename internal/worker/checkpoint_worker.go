package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skylearn/assess-backend/internal/config"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
)

const (
	CheckpointBatchSize    = 50
	CheckpointBatchTimeout = 2 * time.Second
	CheckpointPollTimeout  = 1 * time.Second
)

// CheckpointWorker consumes persist_sessions_queue and writes attempt
// checkpoints to PostgreSQL in batches. Redis already holds the latest
// snapshot; this is the durable copy that survives cache eviction and
// server restarts.
type CheckpointWorker struct {
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewCheckpointWorker creates a new CheckpointWorker.
func NewCheckpointWorker(sessionRepo *repository.SessionRepository, rdb *redis.Client, log zerolog.Logger) *CheckpointWorker {
	return &CheckpointWorker{
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "checkpoint_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *CheckpointWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CheckpointWorker started")

	batch := make([]*model.SessionSnapshot, 0, CheckpointBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= CheckpointBatchSize || time.Since(lastFlush) >= CheckpointBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, CheckpointPollTimeout, config.WorkerKey.PersistSessionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var snap model.SessionSnapshot
			if err := json.Unmarshal([]byte(item[1]), &snap); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &snap)
		}
	}
}

// flushSafe batches via UNNEST and falls back to per-row upserts,
// requeueing anything that still fails.
func (w *CheckpointWorker) flushSafe(ctx context.Context, batch []*model.SessionSnapshot) {
	if len(batch) == 0 {
		return
	}

	// Several snapshots of the same attempt can sit in one batch; keep
	// only the newest per (test, student) so older writes never win.
	batch = dedupeSnapshots(batch)

	if err := w.sessionRepo.BulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk checkpoint upsert failed, using fallback")

		for _, snap := range batch {
			if err := w.sessionRepo.Upsert(ctx, snap); err != nil {
				w.log.Error().Err(err).
					Str("test_id", snap.TestID.String()).
					Int("student_id", snap.StudentID).
					Msg("single upsert failed, requeueing")
				raw, _ := json.Marshal(snap)
				w.rdb.RPush(ctx, config.WorkerKey.PersistSessionsQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("count", len(batch)).Msg("Checkpoint batch persisted")
}

func dedupeSnapshots(batch []*model.SessionSnapshot) []*model.SessionSnapshot {
	type key struct {
		test    string
		student int
	}
	latest := make(map[key]*model.SessionSnapshot, len(batch))
	order := make([]key, 0, len(batch))

	for _, snap := range batch {
		k := key{test: snap.TestID.String(), student: snap.StudentID}
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		existing, seen := latest[k]
		if !seen || !snap.LastSavedAt.Before(existing.LastSavedAt) {
			latest[k] = snap
		}
	}

	out := make([]*model.SessionSnapshot, 0, len(order))
	for _, k := range order {
		out = append(out, latest[k])
	}
	return out
}
