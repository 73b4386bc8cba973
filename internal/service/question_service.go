package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
)

var ErrQuestionNotInTest = errors.New("question does not belong to this test")

// QuestionService handles question and passage authoring.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	passageRepo  *repository.PassageRepository
	testRepo     *repository.TestRepository
	testService  *TestService
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(
	questionRepo *repository.QuestionRepository,
	passageRepo *repository.PassageRepository,
	testRepo *repository.TestRepository,
	testService *TestService,
	log zerolog.Logger,
) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		passageRepo:  passageRepo,
		testRepo:     testRepo,
		testService:  testService,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// ownedTest loads a test and verifies the caller authored it.
func (s *QuestionService) ownedTest(ctx context.Context, testID uuid.UUID, teacherID int) (*model.Test, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.TeacherID != teacherID {
		return nil, ErrNotTestOwner
	}
	return test, nil
}

// ListByTest retrieves all questions for a test the teacher owns.
func (s *QuestionService) ListByTest(ctx context.Context, testID uuid.UUID, teacherID int) ([]model.Question, error) {
	if _, err := s.ownedTest(ctx, testID, teacherID); err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// Add inserts a single question and refreshes the test cache when active.
func (s *QuestionService) Add(ctx context.Context, testID uuid.UUID, teacherID int, req *model.AddQuestionRequest) (*model.Question, error) {
	test, err := s.ownedTest(ctx, testID, teacherID)
	if err != nil {
		return nil, err
	}

	q := questionFromRequest(testID, req)
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}

	s.refreshCacheIfActive(ctx, test)
	return q, nil
}

// ReplaceAll swaps a test's full question set in one transaction. The
// bulk editor saves through this path.
func (s *QuestionService) ReplaceAll(ctx context.Context, testID uuid.UUID, teacherID int, req *model.ReplaceQuestionsRequest) error {
	test, err := s.ownedTest(ctx, testID, teacherID)
	if err != nil {
		return err
	}

	questions := make([]model.Question, len(req.Questions))
	for i := range req.Questions {
		questions[i] = *questionFromRequest(testID, &req.Questions[i])
	}

	if err := s.questionRepo.ReplaceAll(ctx, testID, questions); err != nil {
		return err
	}

	s.refreshCacheIfActive(ctx, test)
	return nil
}

// Delete removes a question after checking it belongs to the teacher's test.
func (s *QuestionService) Delete(ctx context.Context, testID, questionID uuid.UUID, teacherID int) error {
	test, err := s.ownedTest(ctx, testID, teacherID)
	if err != nil {
		return err
	}

	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return err
	}
	found := false
	for _, q := range questions {
		if q.ID == questionID {
			found = true
			break
		}
	}
	if !found {
		return ErrQuestionNotInTest
	}

	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return err
	}

	s.refreshCacheIfActive(ctx, test)
	return nil
}

// ListPassages retrieves a test's reading passages.
func (s *QuestionService) ListPassages(ctx context.Context, testID uuid.UUID, teacherID int) ([]model.Passage, error) {
	if _, err := s.ownedTest(ctx, testID, teacherID); err != nil {
		return nil, err
	}
	passages, err := s.passageRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if passages == nil {
		passages = []model.Passage{}
	}
	return passages, nil
}

// AddPassage attaches a reading passage to a test.
func (s *QuestionService) AddPassage(ctx context.Context, testID uuid.UUID, teacherID int, req *model.AddPassageRequest) (*model.Passage, error) {
	if _, err := s.ownedTest(ctx, testID, teacherID); err != nil {
		return nil, err
	}

	p := &model.Passage{
		TestID:      testID,
		PassageCode: req.PassageCode,
		Title:       req.Title,
		Content:     req.Content,
		MediaURL:    req.MediaURL,
	}
	if err := s.passageRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// refreshCacheIfActive re-warms the Redis payload after edits to a live
// test. Failures are logged, not surfaced: the stale cache still serves
// a coherent question set.
func (s *QuestionService) refreshCacheIfActive(ctx context.Context, test *model.Test) {
	if !test.IsActive {
		return
	}
	if err := s.testService.WarmTestCache(ctx, test); err != nil {
		s.log.Warn().
			Err(err).
			Str("test_id", test.ID.String()).
			Msg("Cache refresh after edit failed")
	}
}

func questionFromRequest(testID uuid.UUID, req *model.AddQuestionRequest) *model.Question {
	var mediaType *model.MediaKind
	if req.MediaType != nil {
		mk := model.MediaKind(*req.MediaType)
		mediaType = &mk
	}
	marks := req.Marks
	if marks == 0 {
		marks = 1
	}
	return &model.Question{
		TestID:        testID,
		PassageID:     req.PassageID,
		QuestionType:  model.QuestionType(req.QuestionType),
		Difficulty:    model.Difficulty(req.Difficulty),
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Marks:         marks,
		OrderIndex:    req.OrderIndex,
		MediaURL:      req.MediaURL,
		MediaType:     mediaType,
	}
}
