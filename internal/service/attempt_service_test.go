package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skylearn/assess-backend/internal/assessment"
	"github.com/skylearn/assess-backend/internal/config"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionStore struct {
	mu      sync.Mutex
	snaps   map[string]*model.SessionSnapshot
	deletes int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{snaps: make(map[string]*model.SessionSnapshot)}
}

func sessionKey(testID uuid.UUID, studentID int) string {
	return fmt.Sprintf("%s:%d", testID, studentID)
}

func (f *fakeSessionStore) Get(_ context.Context, testID uuid.UUID, studentID int) (*model.SessionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[sessionKey(testID, studentID)]
	if !ok {
		return nil, assessment.ErrNoSnapshot
	}
	return snap, nil
}

func (f *fakeSessionStore) Upsert(_ context.Context, snap *model.SessionSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[sessionKey(snap.TestID, snap.StudentID)] = snap
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, testID uuid.UUID, studentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snaps, sessionKey(testID, studentID))
	f.deletes++
	return nil
}

func (f *fakeSessionStore) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

// newBareAttemptService wires just enough of the service to drive the
// in-memory registry. The Redis client points nowhere; the paths under
// test ignore its errors.
func newBareAttemptService(store assessment.SessionStore) *AttemptService {
	return &AttemptService{
		rdb:      redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		cfg:      &config.Config{AutosaveInterval: time.Hour},
		log:      zerolog.Nop(),
		sessions: store,
		registry: make(map[AttemptKey]*LiveAttempt),
	}
}

func practicePool(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            uuid.New(),
			QuestionType:  model.QuestionTypeMCQ,
			Difficulty:    model.DifficultyPractice,
			QuestionText:  fmt.Sprintf("practice question %d", i+1),
			Options:       []byte(`["opt a","opt b","opt c","opt d"]`),
			CorrectAnswer: "A",
			Marks:         1,
			OrderIndex:    i,
		}
	}
	return qs
}

func liveAttempt(t *testing.T, key AttemptKey, durationSeconds int, tiers map[model.Difficulty][]model.Question) *assessment.Attempt {
	t.Helper()
	a, err := assessment.NewAttempt(assessment.Config{
		TestID:          key.TestID,
		StudentID:       key.StudentID,
		DurationSeconds: durationSeconds,
		Practice:        practicePool(2),
		Tiers:           tiers,
		Rand:            rand.New(rand.NewSource(7)),
	})
	require.NoError(t, err)
	return a
}

func TestRegisterKeepsFirstRegistrationOnRace(t *testing.T) {
	s := newBareAttemptService(newFakeSessionStore())
	key := AttemptKey{TestID: uuid.New(), StudentID: 42}

	first, reused := s.register(key, liveAttempt(t, key, 3600, nil), false)
	require.False(t, reused)
	assert.False(t, first.Resumed())

	// A second registration for the same key must hand back the first
	// attempt instead of overwriting it with a rival.
	second, reused := s.register(key, liveAttempt(t, key, 3600, nil), false)
	assert.True(t, reused)
	assert.Same(t, first, second)
	assert.True(t, first.Resumed())

	s.mu.Lock()
	assert.Len(t, s.registry, 1)
	assert.Same(t, first, s.registry[key])
	s.mu.Unlock()

	first.cancel()
}

func TestAbortTearsDownLiveAttempt(t *testing.T) {
	store := newFakeSessionStore()
	s := newBareAttemptService(store)
	key := AttemptKey{TestID: uuid.New(), StudentID: 42}

	la, _ := s.register(key, liveAttempt(t, key, 3600, nil), false)
	events := la.Subscribe()

	s.Abort(context.Background(), la, assessment.ErrNoQuestions)

	_, err := s.Get(key.TestID, key.StudentID)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	assert.Equal(t, 1, store.deleteCount(), "checkpoint cleared")

	for {
		select {
		case ev := <-events:
			if ev.Err == nil {
				// Routine tick published while Abort was still tearing
				// down; keep waiting for the terminal event.
				continue
			}
			assert.ErrorIs(t, ev.Err, assessment.ErrNoQuestions)
			return
		case <-time.After(time.Second):
			t.Fatal("no terminal event published")
		}
	}
}

func TestTimerAbortsWhenNoMainTierHasQuestions(t *testing.T) {
	store := newFakeSessionStore()
	s := newBareAttemptService(store)
	key := AttemptKey{TestID: uuid.New(), StudentID: 42}

	// Practice questions exist but every main tier is empty, so expiry
	// cannot grade a main phase. The timer must abort the attempt, not
	// bail out and leave it registered forever.
	la, _ := s.register(key, liveAttempt(t, key, 1, nil), false)
	events := la.Subscribe()

	require.Eventually(t, func() bool {
		_, err := s.Get(key.TestID, key.StudentID)
		return err != nil
	}, 5*time.Second, 50*time.Millisecond, "attempt still registered after expiry")

	assert.True(t, la.Attempt.Submitted())
	assert.Equal(t, 1, store.deleteCount(), "checkpoint cleared")

	select {
	case ev := <-events:
		assert.ErrorIs(t, ev.Err, assessment.ErrNoQuestions)
	case <-time.After(time.Second):
		t.Fatal("no terminal event published")
	}
}

func TestRegisterPreservesResumedFlag(t *testing.T) {
	s := newBareAttemptService(newFakeSessionStore())
	key := AttemptKey{TestID: uuid.New(), StudentID: 42}

	la, reused := s.register(key, liveAttempt(t, key, 3600, nil), true)
	require.False(t, reused)
	assert.True(t, la.Resumed(), "checkpoint restore marks the attempt resumed")

	la.cancel()
}
