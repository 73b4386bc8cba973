package assessment

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySessionStore struct {
	mu      sync.Mutex
	upserts []*model.SessionSnapshot
	err     error
}

func (m *memorySessionStore) Get(_ context.Context, _ uuid.UUID, _ int) (*model.SessionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.upserts) == 0 {
		return nil, ErrNoSnapshot
	}
	return m.upserts[len(m.upserts)-1], nil
}

func (m *memorySessionStore) Upsert(_ context.Context, snap *model.SessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.upserts = append(m.upserts, snap)
	return nil
}

func (m *memorySessionStore) Delete(_ context.Context, _ uuid.UUID, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = nil
	return nil
}

func (m *memorySessionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

func autosaveAttempt(t *testing.T) *Attempt {
	t.Helper()
	a, err := NewAttempt(Config{
		TestID:          uuid.New(),
		StudentID:       7,
		DurationSeconds: 600,
		Tiers: map[model.Difficulty][]model.Question{
			model.DifficultyEasy: makeQuestions(3, model.DifficultyEasy),
		},
		Rand: rand.New(rand.NewSource(42)),
	})
	require.NoError(t, err)
	return a
}

func TestAutosaverFlushRecordsSnapshot(t *testing.T) {
	a := autosaveAttempt(t)
	store := &memorySessionStore{}
	saver := NewAutosaver(a, store, time.Minute, zerolog.Nop())

	require.NoError(t, a.SelectAnswer("B"))
	saver.Flush(context.Background())

	require.Equal(t, 1, store.count())
	snap := store.upserts[0]
	assert.Equal(t, 7, snap.StudentID)
	assert.Equal(t, "B", snap.Answers[0])
}

func TestAutosaverFlushSwallowsStoreFailure(t *testing.T) {
	a := autosaveAttempt(t)
	store := &memorySessionStore{err: errors.New("redis down")}
	saver := NewAutosaver(a, store, time.Minute, zerolog.Nop())

	assert.NotPanics(t, func() {
		saver.Flush(context.Background())
	})
	assert.Equal(t, 0, store.count())
}

func TestAutosaverRunStopsOnCancel(t *testing.T) {
	a := autosaveAttempt(t)
	store := &memorySessionStore{}
	saver := NewAutosaver(a, store, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		saver.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.count() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autosaver did not stop after cancel")
	}
}

func TestAutosaverRunStopsAfterSubmit(t *testing.T) {
	a := autosaveAttempt(t)
	store := &memorySessionStore{}
	saver := NewAutosaver(a, store, 5*time.Millisecond, zerolog.Nop())

	_, err := a.Submit()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		saver.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autosaver kept running after submission")
	}
	assert.Equal(t, 0, store.count())
}
