package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skylearn/assess-backend/internal/config"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
)

const ResultPollTimeout = 1 * time.Second

// ResultWorker consumes persist_results_queue: it writes the final
// result row and then removes the attempt checkpoint, in that order, so
// a crash between the two steps can never lose a submission.
type ResultWorker struct {
	resultRepo  *repository.ResultRepository
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(resultRepo *repository.ResultRepository, sessionRepo *repository.SessionRepository, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		resultRepo:  resultRepo,
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Draining queue...")
			w.drain()
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			w.process(ctx, []byte(item[1]))
		}
	}
}

// drain empties the queue with a background context so in-flight
// submissions land before the process exits.
func (w *ResultWorker) drain() {
	ctx := context.Background()
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			if err != redis.Nil {
				w.log.Error().Err(err).Msg("Drain LPop error")
			}
			return
		}
		w.process(ctx, []byte(raw))
	}
}

func (w *ResultWorker) process(ctx context.Context, raw []byte) {
	var res model.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.resultRepo.Insert(ctx, &res); err != nil {
		// A retry after a crash hits the unique constraint; the row is
		// already there, so just finish the cleanup.
		if !errors.Is(err, repository.ErrResultExists) {
			w.log.Error().Err(err).
				Str("test_id", res.TestID.String()).
				Int("student_id", res.StudentID).
				Msg("result insert failed, requeueing")
			w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			time.Sleep(2 * time.Second)
			return
		}
	}

	if err := w.sessionRepo.Delete(ctx, res.TestID, res.StudentID); err != nil {
		w.log.Warn().Err(err).
			Str("test_id", res.TestID.String()).
			Int("student_id", res.StudentID).
			Msg("checkpoint cleanup failed")
	}

	w.log.Debug().
		Str("test_id", res.TestID.String()).
		Int("student_id", res.StudentID).
		Int("score", res.Score).
		Msg("Result persisted")
}
