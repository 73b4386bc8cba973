package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
	"github.com/skylearn/assess-backend/internal/response"
)

// ResultService handles teacher-facing result queries.
type ResultService struct {
	resultRepo *repository.ResultRepository
	testRepo   *repository.TestRepository
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, testRepo *repository.TestRepository) *ResultService {
	return &ResultService{resultRepo: resultRepo, testRepo: testRepo}
}

// ownedTest verifies the teacher authored the test before exposing results.
func (s *ResultService) ownedTest(ctx context.Context, testID uuid.UUID, teacherID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if test.TeacherID != teacherID {
		return ErrNotTestOwner
	}
	return nil
}

// ListByTest retrieves paginated results for a teacher's test.
func (s *ResultService) ListByTest(ctx context.Context, testID uuid.UUID, teacherID, page, perPage int) ([]repository.StudentResultRow, *response.Pagination, error) {
	if err := s.ownedTest(ctx, testID, teacherID); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}
	if perPage > 100 {
		perPage = 100
	}

	results, total, err := s.resultRepo.ListByTest(ctx, testID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if results == nil {
		results = []repository.StudentResultRow{}
	}

	totalPages := (total + perPage - 1) / perPage
	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
	return results, pagination, nil
}

// GetByTestAndStudent retrieves one student's result for a teacher's test.
func (s *ResultService) GetByTestAndStudent(ctx context.Context, testID uuid.UUID, teacherID, studentID int) (*model.Result, error) {
	if err := s.ownedTest(ctx, testID, teacherID); err != nil {
		return nil, err
	}
	return s.resultRepo.GetByTestAndStudent(ctx, testID, studentID)
}
