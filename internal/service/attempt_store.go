package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/skylearn/assess-backend/internal/assessment"
	"github.com/skylearn/assess-backend/internal/config"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
)

// queueSessionStore is the write-behind checkpoint store. Upserts land
// in Redis immediately and are queued for the checkpoint worker to
// batch into PostgreSQL; reads prefer Redis and fall back to the
// persisted row (server restart, Redis eviction).
type queueSessionStore struct {
	rdb *redis.Client
	pg  *repository.SessionRepository
}

var _ assessment.SessionStore = (*queueSessionStore)(nil)

func (s *queueSessionStore) Get(ctx context.Context, testID uuid.UUID, studentID int) (*model.SessionSnapshot, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.AttemptSnapshotKey(testID.String(), studentID)).Bytes()
	if err == nil {
		snap := &model.SessionSnapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		return snap, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	return s.pg.Get(ctx, testID, studentID)
}

func (s *queueSessionStore) Upsert(ctx context.Context, snap *model.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AttemptSnapshotKey(snap.TestID.String(), snap.StudentID), data, 0)
	pipe.RPush(ctx, config.WorkerKey.PersistSessionsQueue, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue snapshot: %w", err)
	}
	return nil
}

func (s *queueSessionStore) Delete(ctx context.Context, testID uuid.UUID, studentID int) error {
	// The PostgreSQL row is removed by the result worker after the
	// final result lands; only the cache entry goes here.
	return s.rdb.Del(ctx, config.CacheKey.AttemptSnapshotKey(testID.String(), studentID)).Err()
}

// queueResultStore queues finalized results for the result worker.
type queueResultStore struct {
	rdb *redis.Client
}

var _ assessment.ResultStore = (*queueResultStore)(nil)

func (s *queueResultStore) Insert(ctx context.Context, result *model.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, data).Err(); err != nil {
		return fmt.Errorf("queue result: %w", err)
	}
	return nil
}
