package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skylearn/assess-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, test_id, passage_id, question_type, difficulty, question_text,
	options, correct_answer, marks, order_index, media_url, media_type`

// ListByTest retrieves all questions for a test, ordered by difficulty then order_index.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE test_id = $1
		 ORDER BY difficulty, order_index`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// ListByTestAndDifficulty retrieves the questions of one tier, ordered by order_index.
func (r *QuestionRepository) ListByTestAndDifficulty(ctx context.Context, testID uuid.UUID, d model.Difficulty) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE test_id = $1 AND difficulty = $2
		 ORDER BY order_index`, testID, d,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// CountByDifficulty returns per-tier question counts for a test.
func (r *QuestionRepository) CountByDifficulty(ctx context.Context, testID uuid.UUID) (map[model.Difficulty]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT difficulty, COUNT(*) FROM questions WHERE test_id = $1 GROUP BY difficulty`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Difficulty]int)
	for rows.Next() {
		var d model.Difficulty
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		counts[d] = n
	}
	return counts, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (test_id, passage_id, question_type, difficulty, question_text, options, correct_answer, marks, order_index, media_url, media_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		q.TestID, q.PassageID, q.QuestionType, q.Difficulty, q.QuestionText, q.Options,
		q.CorrectAnswer, q.Marks, q.OrderIndex, q.MediaURL, q.MediaType,
	).Scan(&q.ID)
}

// ReplaceAll deletes a test's questions and inserts the given set in a
// single transaction. Used by the bulk question editor.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, testID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE test_id = $1`, testID); err != nil {
		return err
	}

	for i := range questions {
		q := &questions[i]
		err := tx.QueryRow(ctx,
			`INSERT INTO questions (test_id, passage_id, question_type, difficulty, question_text, options, correct_answer, marks, order_index, media_url, media_type)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING id`,
			testID, q.PassageID, q.QuestionType, q.Difficulty, q.QuestionText, q.Options,
			q.CorrectAnswer, q.Marks, q.OrderIndex, q.MediaURL, q.MediaType,
		).Scan(&q.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes a question by ID.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

func collectQuestions(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.PassageID, &q.QuestionType, &q.Difficulty, &q.QuestionText,
			&q.Options, &q.CorrectAnswer, &q.Marks, &q.OrderIndex, &q.MediaURL, &q.MediaType); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
