package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skylearn/assess-backend/internal/model"
)

// PassageRepository handles reading-passage data access.
type PassageRepository struct {
	pool *pgxpool.Pool
}

// NewPassageRepository creates a new PassageRepository.
func NewPassageRepository(pool *pgxpool.Pool) *PassageRepository {
	return &PassageRepository{pool: pool}
}

// ListByTest retrieves all passages attached to a test.
func (r *PassageRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Passage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, passage_code, title, content, media_url, created_at
		 FROM passages WHERE test_id = $1 ORDER BY passage_code`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passages []model.Passage
	for rows.Next() {
		var p model.Passage
		if err := rows.Scan(&p.ID, &p.TestID, &p.PassageCode, &p.Title, &p.Content, &p.MediaURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// Create inserts a new passage.
func (r *PassageRepository) Create(ctx context.Context, p *model.Passage) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO passages (test_id, passage_code, title, content, media_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		p.TestID, p.PassageCode, p.Title, p.Content, p.MediaURL,
	).Scan(&p.ID, &p.CreatedAt)
}

// Delete removes a passage. Questions referencing it keep their text but
// lose the passage link via FK SET NULL.
func (r *PassageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM passages WHERE id = $1`, id)
	return err
}
