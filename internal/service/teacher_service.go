package service

import (
	"context"

	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
)

// TeacherService handles teacher account logic.
type TeacherService struct {
	teacherRepo *repository.TeacherRepository
	authService *AuthService
}

// NewTeacherService creates a new TeacherService.
func NewTeacherService(teacherRepo *repository.TeacherRepository, authService *AuthService) *TeacherService {
	return &TeacherService{teacherRepo: teacherRepo, authService: authService}
}

// GetByEmail retrieves a teacher by email.
func (s *TeacherService) GetByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	return s.teacherRepo.GetByEmail(ctx, email)
}

// GetByID retrieves a teacher by ID.
func (s *TeacherService) GetByID(ctx context.Context, id int) (*model.Teacher, error) {
	return s.teacherRepo.GetByID(ctx, id)
}

// Create registers a new teacher with a hashed password.
func (s *TeacherService) Create(ctx context.Context, teacher *model.Teacher, password string) error {
	hashed, err := s.authService.HashPassword(password)
	if err != nil {
		return err
	}
	teacher.PasswordHash = hashed
	return s.teacherRepo.Create(ctx, teacher)
}
