package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skylearn/assess-backend/internal/config"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
)

// Domain errors.
var (
	ErrNotTestOwner = errors.New("not the author of this test")
	ErrNoQuestions  = errors.New("test has no questions")
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TestService handles test authoring, code generation, and Redis caching.
type TestService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	passageRepo  *repository.PassageRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	passageRepo *repository.PassageRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		passageRepo:  passageRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "test_service").Logger(),
	}
}

// GenerateTestCode builds a 6-character access code: a subject prefix
// letter followed by 5 random alphanumerics. The alphabet drops 0/O and
// 1/I so codes survive being read aloud in a classroom.
func GenerateTestCode(subject string) (string, error) {
	prefix := subjectPrefix(subject)
	code := make([]byte, 0, 6)
	code = append(code, prefix)
	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code = append(code, codeAlphabet[n.Int64()])
	}
	return string(code), nil
}

func subjectPrefix(subject string) byte {
	switch strings.ToLower(strings.TrimSpace(subject)) {
	case "english":
		return 'E'
	case "science":
		return 'S'
	case "math", "mathematics":
		return 'M'
	default:
		s := strings.ToUpper(strings.TrimSpace(subject))
		if len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z' {
			return s[0]
		}
		return 'T'
	}
}

// NormalizeTestCode uppercases a student-entered code before lookup.
func NormalizeTestCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create inserts a new test with a freshly generated code, retrying on
// the rare code collision.
func (s *TestService) Create(ctx context.Context, teacherID int, req *model.CreateTestRequest) (*model.Test, error) {
	test := &model.Test{
		Title:           req.Title,
		Subject:         req.Subject,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		TargetGrade:     req.TargetGrade,
		TargetSection:   req.TargetSection,
		IsActive:        false,
		TeacherID:       teacherID,
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := GenerateTestCode(req.Subject)
		if err != nil {
			return nil, err
		}
		test.TestCode = code

		err = s.testRepo.Create(ctx, test)
		if err == nil {
			return test, nil
		}
		if !errors.Is(err, repository.ErrDuplicateTestCode) {
			return nil, err
		}
	}
	return nil, errors.New("could not generate a unique test code")
}

// GetByID retrieves a test by its UUID.
func (s *TestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// GetByCode resolves a normalized test code, consulting the Redis
// code→ID mapping before falling back to PostgreSQL.
func (s *TestService) GetByCode(ctx context.Context, code string) (*model.Test, error) {
	code = NormalizeTestCode(code)

	cached, err := s.rdb.Get(ctx, config.CacheKey.TestCodeKey(code)).Result()
	if err == nil {
		if id, parseErr := uuid.Parse(cached); parseErr == nil {
			return s.testRepo.GetByID(ctx, id)
		}
	}

	test, err := s.testRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// Best-effort cache fill for the next entry attempt.
	s.rdb.Set(ctx, config.CacheKey.TestCodeKey(code), test.ID.String(), 0)
	return test, nil
}

// ListByTeacher retrieves all tests authored by a teacher.
func (s *TestService) ListByTeacher(ctx context.Context, teacherID int) ([]model.Test, error) {
	tests, err := s.testRepo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}
	return tests, nil
}

// Update modifies a test's editable fields after an ownership check.
func (s *TestService) Update(ctx context.Context, testID uuid.UUID, teacherID int, req *model.UpdateTestRequest) (*model.Test, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.TeacherID != teacherID {
		return nil, ErrNotTestOwner
	}

	if req.Title != "" {
		test.Title = req.Title
	}
	if req.Description != "" {
		test.Description = req.Description
	}
	if req.DurationMinutes > 0 {
		test.DurationMinutes = req.DurationMinutes
	}
	if req.TargetGrade != "" {
		test.TargetGrade = req.TargetGrade
	}
	if req.TargetSection != "" {
		test.TargetSection = req.TargetSection
	}
	if req.IsActive != nil {
		test.IsActive = *req.IsActive
	}

	if err := s.testRepo.Update(ctx, test); err != nil {
		return nil, err
	}

	// Activation is the publish moment: warm the cache so the first
	// student entering the code never hits a cold read.
	if test.IsActive {
		if err := s.WarmTestCache(ctx, test); err != nil {
			return nil, err
		}
	}
	return test, nil
}

// Delete removes a test after an ownership check.
func (s *TestService) Delete(ctx context.Context, testID uuid.UUID, teacherID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if test.TeacherID != teacherID {
		return ErrNotTestOwner
	}

	if err := s.testRepo.Delete(ctx, testID); err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.TestPayloadKey(testID.String()))
	pipe.Del(ctx, config.CacheKey.TestAnswerKeyKey(testID.String()))
	pipe.Del(ctx, config.CacheKey.TestCodeKey(test.TestCode))
	_, _ = pipe.Exec(ctx)
	return nil
}

// WarmTestCache loads a test's student payload and answer key from
// PostgreSQL into Redis. Used on activation and by startup prewarming.
func (s *TestService) WarmTestCache(ctx context.Context, test *model.Test) error {
	questions, err := s.questionRepo.ListByTest(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	tiers := make(map[model.Difficulty][]model.QuestionForStudent)
	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		tiers[q.Difficulty] = append(tiers[q.Difficulty], q.ForStudent())
		answerKey[q.ID.String()] = q.CorrectAnswer
	}

	payload := model.TestPayload{
		TestID:   test.ID,
		Title:    test.Title,
		Subject:  test.Subject,
		Duration: test.DurationMinutes,
		Tiers:    tiers,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Cache payload, answer key, and code mapping atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestPayloadKey(test.ID.String()), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.TestAnswerKeyKey(test.ID.String()))
	pipe.HSet(ctx, config.CacheKey.TestAnswerKeyKey(test.ID.String()), answerKey)
	pipe.Set(ctx, config.CacheKey.TestCodeKey(test.TestCode), test.ID.String(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", test.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmActiveTests loads all active tests into Redis on startup so a
// class entering codes at once never lazy-loads under a thundering herd.
func (s *TestService) PrewarmActiveTests(ctx context.Context) error {
	tests, err := s.testRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tests: %w", err)
	}

	if len(tests) == 0 {
		s.log.Info().Msg("No active tests to prewarm")
		return nil
	}

	warmed := 0
	for i := range tests {
		if err := s.WarmTestCache(ctx, &tests[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("test_id", tests[i].ID.String()).
				Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(tests)).
		Msg("Prewarming complete")
	return nil
}

// GetTestPayload retrieves the cached student payload from Redis.
func (s *TestService) GetTestPayload(ctx context.Context, testID uuid.UUID) (*model.TestPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(testID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.New("test not active or payload not cached")
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.TestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the question→answer hash from Redis.
func (s *TestService) GetAnswerKey(ctx context.Context, testID uuid.UUID) (map[string]string, error) {
	key, err := s.rdb.HGetAll(ctx, config.CacheKey.TestAnswerKeyKey(testID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	return key, nil
}
