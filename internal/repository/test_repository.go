package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skylearn/assess-backend/internal/model"
)

var ErrDuplicateTestCode = errors.New("test with this code already exists")

// TestRepository handles test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, test_code, title, subject, description, duration_minutes,
	target_grade, target_section, is_active, teacher_id, created_at, updated_at`

func scanTest(row interface{ Scan(...interface{}) error }) (*model.Test, error) {
	t := &model.Test{}
	err := row.Scan(&t.ID, &t.TestCode, &t.Title, &t.Subject, &t.Description, &t.DurationMinutes,
		&t.TargetGrade, &t.TargetSection, &t.IsActive, &t.TeacherID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a test by ID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
}

// GetByCode retrieves a test by its access code. Callers normalize the
// code to uppercase before lookup.
func (r *TestRepository) GetByCode(ctx context.Context, code string) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE test_code = $1`, code))
}

// ListByTeacher retrieves all tests authored by a teacher, newest first.
func (r *TestRepository) ListByTeacher(ctx context.Context, teacherID int) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests WHERE teacher_id = $1 ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// ListActive retrieves all tests students can currently enter.
func (r *TestRepository) ListActive(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests WHERE is_active = TRUE ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// Create inserts a new test with its server-generated code.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tests (test_code, title, subject, description, duration_minutes, target_grade, target_section, is_active, teacher_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		t.TestCode, t.Title, t.Subject, t.Description, t.DurationMinutes,
		t.TargetGrade, t.TargetSection, t.IsActive, t.TeacherID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTestCode
		}
		return err
	}
	return nil
}

// Update modifies a test's editable fields. The code is immutable once issued.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET title = $1, description = $2, duration_minutes = $3,
		 target_grade = $4, target_section = $5, is_active = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		t.Title, t.Description, t.DurationMinutes, t.TargetGrade, t.TargetSection, t.IsActive, t.ID,
	)
	return err
}

// SetActive toggles whether students can enter the test.
func (r *TestRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET is_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, active, id)
	return err
}

// Delete removes a test and, via FK cascade, its questions, passages,
// checkpoints, and results.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}

// CodeExists reports whether a test code is already issued.
func (r *TestRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tests WHERE test_code = $1)`, code).Scan(&exists)
	return exists, err
}
