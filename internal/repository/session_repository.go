package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skylearn/assess-backend/internal/assessment"
	"github.com/skylearn/assess-backend/internal/model"
)

// SessionRepository handles attempt checkpoint data access. The JSON
// columns (answers, marked_for_review, question_order) round-trip
// through the snapshot's own serialization so the Redis cache and the
// Postgres row never disagree on shape.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Get retrieves a checkpoint by (test, student). Returns
// assessment.ErrNoSnapshot when none exists.
func (r *SessionRepository) Get(ctx context.Context, testID uuid.UUID, studentID int) (*model.SessionSnapshot, error) {
	snap := &model.SessionSnapshot{}
	var answers, marked, order []byte
	err := r.pool.QueryRow(ctx,
		`SELECT test_id, student_id, answers, current_question, time_remaining,
		        marked_for_review, question_order, difficulty_level, practice_complete,
		        practice_score, started_at, last_saved_at
		 FROM test_sessions WHERE test_id = $1 AND student_id = $2`, testID, studentID,
	).Scan(&snap.TestID, &snap.StudentID, &answers, &snap.CurrentQuestion, &snap.TimeRemaining,
		&marked, &order, &snap.DifficultyLevel, &snap.PracticeComplete,
		&snap.PracticeScore, &snap.StartedAt, &snap.LastSavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assessment.ErrNoSnapshot
		}
		return nil, err
	}

	if err := json.Unmarshal(answers, &snap.Answers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(marked, &snap.MarkedForReview); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(order, &snap.QuestionOrder); err != nil {
		return nil, err
	}
	return snap, nil
}

// Upsert creates or refreshes a checkpoint without locking.
func (r *SessionRepository) Upsert(ctx context.Context, snap *model.SessionSnapshot) error {
	answers, err := json.Marshal(snap.Answers)
	if err != nil {
		return err
	}
	marked, err := json.Marshal(snap.MarkedForReview)
	if err != nil {
		return err
	}
	order, err := json.Marshal(snap.QuestionOrder)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO test_sessions (test_id, student_id, answers, current_question, time_remaining,
		                            marked_for_review, question_order, difficulty_level, practice_complete,
		                            practice_score, started_at, last_saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (test_id, student_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     current_question = EXCLUDED.current_question,
		     time_remaining = EXCLUDED.time_remaining,
		     marked_for_review = EXCLUDED.marked_for_review,
		     question_order = EXCLUDED.question_order,
		     difficulty_level = EXCLUDED.difficulty_level,
		     practice_complete = EXCLUDED.practice_complete,
		     practice_score = EXCLUDED.practice_score,
		     last_saved_at = EXCLUDED.last_saved_at`,
		snap.TestID, snap.StudentID, answers, snap.CurrentQuestion, snap.TimeRemaining,
		marked, order, snap.DifficultyLevel, snap.PracticeComplete,
		snap.PracticeScore, snap.StartedAt, snap.LastSavedAt,
	)
	return err
}

// BulkUpsert persists a batch of checkpoints in one round trip via UNNEST.
// Used by the checkpoint worker when the queue backs up.
func (r *SessionRepository) BulkUpsert(ctx context.Context, snaps []*model.SessionSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	n := len(snaps)
	testIDs := make([]uuid.UUID, n)
	studentIDs := make([]int32, n)
	answers := make([]string, n)
	positions := make([]int32, n)
	remaining := make([]int32, n)
	marked := make([]string, n)
	orders := make([]string, n)
	tiers := make([]*string, n)
	practiceDone := make([]bool, n)
	practiceScores := make([]*int32, n)
	startedAts := make([]interface{}, n)
	savedAts := make([]interface{}, n)

	for i, snap := range snaps {
		a, err := json.Marshal(snap.Answers)
		if err != nil {
			return err
		}
		m, err := json.Marshal(snap.MarkedForReview)
		if err != nil {
			return err
		}
		o, err := json.Marshal(snap.QuestionOrder)
		if err != nil {
			return err
		}

		testIDs[i] = snap.TestID
		studentIDs[i] = int32(snap.StudentID)
		answers[i] = string(a)
		positions[i] = int32(snap.CurrentQuestion)
		remaining[i] = int32(snap.TimeRemaining)
		marked[i] = string(m)
		orders[i] = string(o)
		if snap.DifficultyLevel != nil {
			s := string(*snap.DifficultyLevel)
			tiers[i] = &s
		}
		practiceDone[i] = snap.PracticeComplete
		if snap.PracticeScore != nil {
			v := int32(*snap.PracticeScore)
			practiceScores[i] = &v
		}
		startedAts[i] = snap.StartedAt
		savedAts[i] = snap.LastSavedAt
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO test_sessions (test_id, student_id, answers, current_question, time_remaining,
		                            marked_for_review, question_order, difficulty_level, practice_complete,
		                            practice_score, started_at, last_saved_at)
		 SELECT t.test_id, t.student_id, t.answers::jsonb, t.current_question, t.time_remaining,
		        t.marked_for_review::jsonb, t.question_order::jsonb, t.difficulty_level, t.practice_complete,
		        t.practice_score, t.started_at, t.last_saved_at
		 FROM UNNEST($1::uuid[], $2::int[], $3::text[], $4::int[], $5::int[],
		             $6::text[], $7::text[], $8::text[], $9::bool[],
		             $10::int[], $11::timestamptz[], $12::timestamptz[])
		      AS t(test_id, student_id, answers, current_question, time_remaining,
		           marked_for_review, question_order, difficulty_level, practice_complete,
		           practice_score, started_at, last_saved_at)
		 ON CONFLICT (test_id, student_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     current_question = EXCLUDED.current_question,
		     time_remaining = EXCLUDED.time_remaining,
		     marked_for_review = EXCLUDED.marked_for_review,
		     question_order = EXCLUDED.question_order,
		     difficulty_level = EXCLUDED.difficulty_level,
		     practice_complete = EXCLUDED.practice_complete,
		     practice_score = EXCLUDED.practice_score,
		     last_saved_at = EXCLUDED.last_saved_at`,
		testIDs, studentIDs, answers, positions, remaining,
		marked, orders, tiers, practiceDone,
		practiceScores, startedAts, savedAts,
	)
	return err
}

// Delete removes a checkpoint once the attempt is finalized.
func (r *SessionRepository) Delete(ctx context.Context, testID uuid.UUID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM test_sessions WHERE test_id = $1 AND student_id = $2`, testID, studentID)
	return err
}
