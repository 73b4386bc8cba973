package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/skylearn/assess-backend/internal/assessment"
	"github.com/skylearn/assess-backend/internal/config"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

// Attempt lifecycle errors.
var (
	ErrInvalidTestCode  = errors.New("no test matches this code")
	ErrTestNotActive    = errors.New("test is not active")
	ErrTestAlreadyTaken = errors.New("student already has a result for this test")
	ErrTestNotTargeted  = errors.New("test is not assigned to this student's grade or section")
	ErrAttemptNotFound  = errors.New("no live attempt for this student and test")
)

// AttemptKey identifies one student's attempt at one test.
type AttemptKey struct {
	TestID    uuid.UUID
	StudentID int
}

// AttemptEvent is pushed to the attached WebSocket connection by the
// server-side timer loop. A non-nil Err is terminal: the attempt has
// been torn down and no further events follow.
type AttemptEvent struct {
	TimeRemaining int
	Progress      *assessment.Progress
	Err           error
}

// terminal reports whether this is the last event the attempt emits.
func (ev AttemptEvent) terminal() bool {
	return ev.Err != nil || (ev.Progress != nil && ev.Progress.Kind == assessment.ProgressFinalized)
}

// LiveAttempt is a registered in-memory attempt with its timer and
// autosave goroutines. At most one WebSocket subscriber receives events;
// a reconnect replaces the previous subscriber.
type LiveAttempt struct {
	Key     AttemptKey
	Attempt *assessment.Attempt
	Saver   *assessment.Autosaver

	mu      sync.Mutex
	events  chan AttemptEvent
	cancel  context.CancelFunc
	resumed bool
}

// Resumed reports whether the attempt picked up prior state: a restored
// checkpoint, or a registration that was already running.
func (la *LiveAttempt) Resumed() bool {
	la.mu.Lock()
	defer la.mu.Unlock()
	return la.resumed
}

func (la *LiveAttempt) markResumed() {
	la.mu.Lock()
	la.resumed = true
	la.mu.Unlock()
}

// Subscribe attaches a consumer to the attempt's event stream, replacing
// any previous subscriber.
func (la *LiveAttempt) Subscribe() <-chan AttemptEvent {
	la.mu.Lock()
	defer la.mu.Unlock()
	la.events = make(chan AttemptEvent, 8)
	return la.events
}

func (la *LiveAttempt) publish(ev AttemptEvent) {
	la.mu.Lock()
	ch := la.events
	la.mu.Unlock()
	if ch == nil {
		return
	}
	if ev.terminal() {
		// The subscriber must not miss its own finalization or abort;
		// wait out a backed-up channel instead of dropping.
		select {
		case ch <- ev:
		case <-time.After(5 * time.Second):
		}
		return
	}
	select {
	case ch <- ev:
	default:
		// Slow or dead consumer. Timer state reaches it on the next tick.
	}
}

// AttemptService owns the registry of live attempts and the path from
// test code entry to finalized result.
type AttemptService struct {
	testService  *TestService
	questionRepo *repository.QuestionRepository
	sessionRepo  *repository.SessionRepository
	resultRepo   *repository.ResultRepository
	rdb          *redis.Client
	cfg          *config.Config
	log          zerolog.Logger

	sessions assessment.SessionStore
	results  assessment.ResultStore

	mu       sync.Mutex
	registry map[AttemptKey]*LiveAttempt
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	testService *TestService,
	questionRepo *repository.QuestionRepository,
	sessionRepo *repository.SessionRepository,
	resultRepo *repository.ResultRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		testService:  testService,
		questionRepo: questionRepo,
		sessionRepo:  sessionRepo,
		resultRepo:   resultRepo,
		rdb:          rdb,
		cfg:          cfg,
		log:          log.With().Str("component", "attempt_service").Logger(),
		sessions:     &queueSessionStore{rdb: rdb, pg: sessionRepo},
		results:      &queueResultStore{rdb: rdb},
		registry:     make(map[AttemptKey]*LiveAttempt),
	}
}

// StartOrResume validates a test code for a student and returns a live
// attempt, restoring any saved checkpoint. Returns resumed=true when a
// checkpoint or an already-running attempt was picked up.
func (s *AttemptService) StartOrResume(ctx context.Context, student *model.Student, rawCode string) (*LiveAttempt, bool, error) {
	test, err := s.testService.GetByCode(ctx, rawCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrInvalidTestCode
		}
		return nil, false, err
	}

	if !test.IsActive {
		return nil, false, ErrTestNotActive
	}
	if test.TargetGrade != "" && test.TargetGrade != student.Grade {
		return nil, false, ErrTestNotTargeted
	}
	if test.TargetSection != "" && test.TargetSection != student.Section {
		return nil, false, ErrTestNotTargeted
	}

	taken, err := s.resultRepo.Exists(ctx, test.ID, student.ID)
	if err != nil {
		return nil, false, err
	}
	if taken {
		return nil, false, ErrTestAlreadyTaken
	}

	key := AttemptKey{TestID: test.ID, StudentID: student.ID}

	s.mu.Lock()
	if la, ok := s.registry[key]; ok {
		s.mu.Unlock()
		la.markResumed()
		return la, true, nil
	}
	s.mu.Unlock()

	practice, tiers, err := s.loadQuestions(ctx, test.ID)
	if err != nil {
		return nil, false, err
	}

	attempt, err := assessment.NewAttempt(assessment.Config{
		TestID:          test.ID,
		StudentID:       student.ID,
		DurationSeconds: test.DurationMinutes * 60,
		Practice:        practice,
		Tiers:           tiers,
		Rand:            rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	if err != nil {
		return nil, false, err
	}

	// Restore a saved checkpoint before the first question is served.
	resumed := false
	snap, err := s.sessions.Get(ctx, test.ID, student.ID)
	if err == nil {
		if restoreErr := attempt.Restore(snap); restoreErr != nil {
			// Questions changed since the checkpoint. Start over rather
			// than present answers against the wrong questions.
			s.log.Warn().
				Err(restoreErr).
				Str("test_id", test.ID.String()).
				Int("student_id", student.ID).
				Msg("Checkpoint restore failed, starting fresh")
			_ = s.sessions.Delete(ctx, test.ID, student.ID)
		} else {
			resumed = true
		}
	} else if !errors.Is(err, assessment.ErrNoSnapshot) {
		return nil, false, err
	}

	la, reused := s.register(key, attempt, resumed)
	if reused {
		resumed = true
	}

	s.rdb.Set(ctx, config.CacheKey.StudentActiveTestKey(student.ID), test.ID.String(), 0)
	s.log.Info().
		Str("test_id", test.ID.String()).
		Int("student_id", student.ID).
		Bool("resumed", resumed).
		Msg("Attempt started")
	return la, resumed, nil
}

// Get returns the live attempt for a (test, student) pair.
func (s *AttemptService) Get(testID uuid.UUID, studentID int) (*LiveAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	la, ok := s.registry[AttemptKey{TestID: testID, StudentID: studentID}]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return la, nil
}

// HandleProgress reacts to a Progress value returned by an attempt
// mutation: phase changes trigger an immediate checkpoint, finalization
// tears the attempt down and queues the result.
func (s *AttemptService) HandleProgress(ctx context.Context, la *LiveAttempt, p *assessment.Progress) {
	if p == nil {
		return
	}
	switch p.Kind {
	case assessment.ProgressPhaseChanged:
		la.Saver.Flush(ctx)
	case assessment.ProgressFinalized:
		s.finalize(ctx, la, p.Result)
	}
}

// Flush checkpoints a live attempt immediately. Called on visibility
// loss and on WebSocket disconnect.
func (s *AttemptService) Flush(ctx context.Context, la *LiveAttempt) {
	if !la.Attempt.Submitted() {
		la.Saver.Flush(ctx)
	}
}

// FlushAll checkpoints every live attempt. Called once during graceful
// shutdown so restarts resume mid-attempt students exactly where they were.
func (s *AttemptService) FlushAll(ctx context.Context) {
	s.mu.Lock()
	live := make([]*LiveAttempt, 0, len(s.registry))
	for _, la := range s.registry {
		live = append(live, la)
	}
	s.mu.Unlock()

	for _, la := range live {
		s.Flush(ctx, la)
	}
	s.log.Info().Int("count", len(live)).Msg("Flushed live attempts")
}

// GetOwnResults lists a student's finalized results.
func (s *AttemptService) GetOwnResults(ctx context.Context, studentID int) ([]model.Result, error) {
	results, err := s.resultRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, nil
}

// register creates the LiveAttempt and starts its timer and autosave
// goroutines. The registry is re-checked under the lock: when two
// concurrent StartOrResume calls race past the lookup, only the first
// registration sticks and the second caller gets it back with
// reused=true, so no goroutines are started for a losing attempt.
func (s *AttemptService) register(key AttemptKey, attempt *assessment.Attempt, resumed bool) (*LiveAttempt, bool) {
	ctx, cancel := context.WithCancel(context.Background())

	la := &LiveAttempt{
		Key:     key,
		Attempt: attempt,
		Saver:   assessment.NewAutosaver(attempt, s.sessions, s.cfg.AutosaveInterval, s.log),
		cancel:  cancel,
		resumed: resumed,
	}

	s.mu.Lock()
	if existing, ok := s.registry[key]; ok {
		s.mu.Unlock()
		cancel()
		existing.markResumed()
		return existing, true
	}
	s.registry[key] = la
	s.mu.Unlock()

	go la.Saver.Run(ctx)
	go s.runTimer(ctx, la)
	return la, false
}

// runTimer drives the server-authoritative countdown. It keeps ticking
// while the WebSocket is disconnected; expiry finalizes the attempt the
// same way a manual submit does.
func (s *AttemptService) runTimer(ctx context.Context, la *LiveAttempt) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p, err := la.Attempt.Tick()
			if errors.Is(err, assessment.ErrNoQuestions) {
				// Practice ended with nothing to serve in any main
				// tier. The attempt cannot produce a Result; tear it
				// down instead of leaving it registered forever.
				s.Abort(context.Background(), la, err)
				return
			}
			if err != nil {
				return
			}
			ev := AttemptEvent{TimeRemaining: la.Attempt.TimeRemaining(), Progress: p}
			la.publish(ev)
			if p != nil && p.Kind == assessment.ProgressFinalized {
				s.finalize(context.Background(), la, p.Result)
				return
			}
		}
	}
}

// Abort tears down a live attempt that cannot continue. The checkpoint
// is deleted so re-entering the test starts fresh instead of restoring
// into the same dead end, and a terminal event tells any attached
// WebSocket why the attempt ended.
func (s *AttemptService) Abort(ctx context.Context, la *LiveAttempt, cause error) {
	if err := s.sessions.Delete(ctx, la.Key.TestID, la.Key.StudentID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear checkpoint cache")
	}
	s.rdb.Del(ctx, config.CacheKey.StudentActiveTestKey(la.Key.StudentID))

	s.mu.Lock()
	delete(s.registry, la.Key)
	s.mu.Unlock()
	la.cancel()

	la.publish(AttemptEvent{Err: cause})

	s.log.Error().
		Err(cause).
		Str("test_id", la.Key.TestID.String()).
		Int("student_id", la.Key.StudentID).
		Msg("Attempt aborted")
}

// finalize queues the result for persistence, clears the checkpoint
// cache, and tears down the live attempt.
func (s *AttemptService) finalize(ctx context.Context, la *LiveAttempt, result *model.Result) {
	if err := s.results.Insert(ctx, result); err != nil {
		// The queue push failed; the result exists only in memory.
		// Keep the checkpoint so the attempt can be reconciled manually.
		s.log.Error().
			Err(err).
			Str("test_id", la.Key.TestID.String()).
			Int("student_id", la.Key.StudentID).
			Msg("Failed to queue result for persistence")
	} else if err := s.sessions.Delete(ctx, la.Key.TestID, la.Key.StudentID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear checkpoint cache")
	}

	s.rdb.Del(ctx, config.CacheKey.StudentActiveTestKey(la.Key.StudentID))

	s.mu.Lock()
	delete(s.registry, la.Key)
	s.mu.Unlock()
	la.cancel()

	s.log.Info().
		Str("test_id", la.Key.TestID.String()).
		Int("student_id", la.Key.StudentID).
		Int("score", result.Score).
		Msg("Attempt finalized")
}

// loadQuestions assembles the per-tier pools for an attempt, preferring
// the Redis payload + answer key over a PostgreSQL read.
func (s *AttemptService) loadQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, map[model.Difficulty][]model.Question, error) {
	payload, err := s.testService.GetTestPayload(ctx, testID)
	if err == nil {
		answerKey, keyErr := s.testService.GetAnswerKey(ctx, testID)
		if keyErr == nil && len(answerKey) > 0 {
			practice, tiers := poolsFromPayload(testID, payload, answerKey)
			if len(practice) > 0 || len(tiers) > 0 {
				return practice, tiers, nil
			}
		}
	}

	// Cold path: full read from PostgreSQL.
	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, nil, err
	}

	var practice []model.Question
	tiers := make(map[model.Difficulty][]model.Question)
	for _, q := range questions {
		if q.Difficulty == model.DifficultyPractice {
			practice = append(practice, q)
		} else {
			tiers[q.Difficulty] = append(tiers[q.Difficulty], q)
		}
	}
	return practice, tiers, nil
}

// poolsFromPayload rebuilds gradeable questions by joining the cached
// student payload with the cached answer key. Questions missing from the
// key are dropped rather than served ungradeable.
func poolsFromPayload(testID uuid.UUID, payload *model.TestPayload, answerKey map[string]string) ([]model.Question, map[model.Difficulty][]model.Question) {
	var practice []model.Question
	tiers := make(map[model.Difficulty][]model.Question)

	for difficulty, qs := range payload.Tiers {
		for _, sq := range qs {
			answer, ok := answerKey[sq.ID.String()]
			if !ok {
				continue
			}
			q := model.Question{
				ID:            sq.ID,
				TestID:        testID,
				PassageID:     sq.PassageID,
				QuestionType:  model.QuestionTypeMCQ,
				Difficulty:    difficulty,
				QuestionText:  sq.QuestionText,
				Options:       sq.Options,
				CorrectAnswer: answer,
				Marks:         sq.Marks,
				OrderIndex:    sq.OrderIndex,
				MediaURL:      sq.MediaURL,
				MediaType:     sq.MediaType,
			}
			if difficulty == model.DifficultyPractice {
				practice = append(practice, q)
			} else {
				tiers[difficulty] = append(tiers[difficulty], q)
			}
		}
	}
	return practice, tiers
}
