package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skylearn/assess-backend/internal/model"
)

var ErrResultExists = errors.New("result already recorded for this attempt")

// StudentResultRow joins a result with the student who produced it, for
// the teacher-facing results table.
type StudentResultRow struct {
	model.Result
	StudentName string `json:"student_name"`
	StudentCode string `json:"student_code"`
	Grade       string `json:"grade"`
	Section     string `json:"section"`
}

// ResultRepository handles final result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Insert records a finalized result. The unique (test_id, student_id)
// constraint enforces one result per student per test.
func (r *ResultRepository) Insert(ctx context.Context, res *model.Result) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO test_results (test_id, student_id, score, correct_answers, wrong_answers,
		                           total_questions, difficulty_level, practice_score, time_spent,
		                           answers, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		res.TestID, res.StudentID, res.Score, res.CorrectAnswers, res.WrongAnswers,
		res.TotalQuestions, res.DifficultyLevel, res.PracticeScore, res.TimeSpent,
		answers, res.CompletedAt,
	).Scan(&res.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrResultExists
		}
		return err
	}
	return nil
}

// Exists reports whether a student already has a result for a test.
func (r *ResultRepository) Exists(ctx context.Context, testID uuid.UUID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM test_results WHERE test_id = $1 AND student_id = $2)`,
		testID, studentID).Scan(&exists)
	return exists, err
}

// GetByTestAndStudent retrieves one student's result for a test.
func (r *ResultRepository) GetByTestAndStudent(ctx context.Context, testID uuid.UUID, studentID int) (*model.Result, error) {
	res := &model.Result{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, student_id, score, correct_answers, wrong_answers, total_questions,
		        difficulty_level, practice_score, time_spent, answers, completed_at
		 FROM test_results WHERE test_id = $1 AND student_id = $2`, testID, studentID,
	).Scan(&res.ID, &res.TestID, &res.StudentID, &res.Score, &res.CorrectAnswers, &res.WrongAnswers,
		&res.TotalQuestions, &res.DifficultyLevel, &res.PracticeScore, &res.TimeSpent,
		&answers, &res.CompletedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return nil, err
	}
	return res, nil
}

// ListByStudent retrieves all of a student's results, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, student_id, score, correct_answers, wrong_answers, total_questions,
		        difficulty_level, practice_score, time_spent, answers, completed_at
		 FROM test_results WHERE student_id = $1 ORDER BY completed_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		var answers []byte
		if err := rows.Scan(&res.ID, &res.TestID, &res.StudentID, &res.Score, &res.CorrectAnswers,
			&res.WrongAnswers, &res.TotalQuestions, &res.DifficultyLevel, &res.PracticeScore,
			&res.TimeSpent, &answers, &res.CompletedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answers, &res.Answers); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListByTest retrieves paginated results for a test joined with student
// identity, ordered by score descending.
func (r *ResultRepository) ListByTest(ctx context.Context, testID uuid.UUID, page, perPage int) ([]StudentResultRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_results WHERE test_id = $1`, testID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT tr.id, tr.test_id, tr.student_id, tr.score, tr.correct_answers, tr.wrong_answers,
		        tr.total_questions, tr.difficulty_level, tr.practice_score, tr.time_spent,
		        tr.answers, tr.completed_at,
		        s.name, s.student_code, s.grade, s.section
		 FROM test_results tr
		 JOIN students s ON tr.student_id = s.id
		 WHERE tr.test_id = $1
		 ORDER BY tr.score DESC, s.name ASC
		 LIMIT $2 OFFSET $3`, testID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []StudentResultRow
	for rows.Next() {
		var row StudentResultRow
		var answers []byte
		if err := rows.Scan(&row.ID, &row.TestID, &row.StudentID, &row.Score, &row.CorrectAnswers,
			&row.WrongAnswers, &row.TotalQuestions, &row.DifficultyLevel, &row.PracticeScore,
			&row.TimeSpent, &answers, &row.CompletedAt,
			&row.StudentName, &row.StudentCode, &row.Grade, &row.Section); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(answers, &row.Answers); err != nil {
			return nil, 0, err
		}
		results = append(results, row)
	}
	return results, total, rows.Err()
}
