package assessment

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullConfig(seed int64) Config {
	return Config{
		TestID:          uuid.New(),
		StudentID:       101,
		DurationSeconds: 3600,
		Practice:        makeQuestions(5, model.DifficultyPractice),
		Tiers: map[model.Difficulty][]model.Question{
			model.DifficultyEasy:   makeQuestions(10, model.DifficultyEasy),
			model.DifficultyMedium: makeQuestions(10, model.DifficultyMedium),
			model.DifficultyHard:   makeQuestions(10, model.DifficultyHard),
		},
		Rand: rand.New(rand.NewSource(seed)),
		Now:  func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) },
	}
}

// answerAndNext selects a letter on the current question and advances.
func answerAndNext(t *testing.T, a *Attempt, letter string) *Progress {
	t.Helper()
	require.NoError(t, a.SelectAnswer(letter))
	p, err := a.Next()
	require.NoError(t, err)
	return p
}

func TestAttemptStartsInPracticeWhenPracticeExists(t *testing.T) {
	a, err := NewAttempt(fullConfig(1))
	require.NoError(t, err)

	assert.Equal(t, model.PhasePractice, a.Phase())
	assert.Equal(t, 5, a.QuestionCount())
	assert.Equal(t, model.Difficulty(""), a.AssignedTier())
}

func TestAttemptSkipsPracticeWhenAbsent(t *testing.T) {
	cfg := fullConfig(1)
	cfg.Practice = nil
	cfg.Tiers = map[model.Difficulty][]model.Question{
		model.DifficultyMedium: makeQuestions(5, model.DifficultyMedium),
	}

	a, err := NewAttempt(cfg)
	require.NoError(t, err)

	assert.Equal(t, model.PhaseMain, a.Phase())
	assert.Equal(t, model.DifficultyMedium, a.AssignedTier())
	assert.Equal(t, 5, a.QuestionCount())

	snap := a.Snapshot()
	assert.True(t, snap.PracticeComplete)
	assert.Nil(t, snap.PracticeScore, "no practice score is recorded")
}

func TestAttemptNoQuestionsAnywhere(t *testing.T) {
	cfg := fullConfig(1)
	cfg.Practice = nil
	cfg.Tiers = nil

	_, err := NewAttempt(cfg)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestPracticeTransitionAssignsTierAndResets(t *testing.T) {
	a, err := NewAttempt(fullConfig(2))
	require.NoError(t, err)

	require.NoError(t, a.ToggleFlag(0))

	// 3 of 5 correct → 60% → medium.
	var progress *Progress
	for i := 0; i < 5; i++ {
		letter := "A"
		if i >= 3 {
			letter = "B"
		}
		progress = answerAndNext(t, a, letter)
	}

	require.Equal(t, ProgressPhaseChanged, progress.Kind)
	assert.Equal(t, 60, progress.PracticeScore)
	assert.Equal(t, model.DifficultyMedium, progress.AssignedTier)

	assert.Equal(t, model.PhaseMain, a.Phase())
	assert.Equal(t, 0, a.Position(), "position resets for the new phase")
	assert.Equal(t, 10, a.QuestionCount())
	assert.Empty(t, a.FlaggedPositions(), "flags reset for a fresh review cycle")
	assert.Equal(t, model.DifficultyMedium, a.AssignedTier())
}

func TestFullAdaptiveFlow(t *testing.T) {
	a, err := NewAttempt(fullConfig(3))
	require.NoError(t, err)

	// Practice: 3/5 correct → 60% → medium tier.
	for i := 0; i < 5; i++ {
		letter := "A"
		if i >= 3 {
			letter = "B"
		}
		answerAndNext(t, a, letter)
	}

	// Main: 7/10 correct.
	var progress *Progress
	for i := 0; i < 10; i++ {
		letter := "A"
		if i >= 7 {
			letter = "C"
		}
		progress = answerAndNext(t, a, letter)
	}

	require.Equal(t, ProgressFinalized, progress.Kind)
	res := progress.Result
	require.NotNil(t, res)

	assert.Equal(t, 70, res.Score)
	assert.Equal(t, 7, res.CorrectAnswers)
	assert.Equal(t, 3, res.WrongAnswers)
	assert.Equal(t, 10, res.TotalQuestions)
	assert.Equal(t, model.DifficultyMedium, res.DifficultyLevel)
	require.NotNil(t, res.PracticeScore)
	assert.Equal(t, 60, *res.PracticeScore)
	assert.True(t, a.Submitted())
}

func TestNavigationBounds(t *testing.T) {
	a, err := NewAttempt(fullConfig(4))
	require.NoError(t, err)

	require.NoError(t, a.Prev())
	assert.Equal(t, 0, a.Position(), "prev at position 0 is a no-op")

	assert.ErrorIs(t, a.JumpTo(-1), ErrPositionOutOfRange)
	assert.ErrorIs(t, a.JumpTo(5), ErrPositionOutOfRange)
	require.NoError(t, a.JumpTo(4))
	assert.Equal(t, 4, a.Position())

	assert.ErrorIs(t, a.ToggleFlag(99), ErrPositionOutOfRange)
}

func TestToggleFlagIsSymmetric(t *testing.T) {
	a, err := NewAttempt(fullConfig(5))
	require.NoError(t, err)

	require.NoError(t, a.ToggleFlag(2))
	require.NoError(t, a.ToggleFlag(0))
	assert.Equal(t, []int{0, 2}, a.FlaggedPositions())

	require.NoError(t, a.ToggleFlag(2))
	assert.Equal(t, []int{0}, a.FlaggedPositions())
}

func TestSelectAnswerOverwrites(t *testing.T) {
	a, err := NewAttempt(fullConfig(6))
	require.NoError(t, err)

	require.NoError(t, a.SelectAnswer("B"))
	require.NoError(t, a.SelectAnswer("A"))
	assert.ErrorIs(t, a.SelectAnswer("ab"), ErrInvalidAnswer)
	assert.ErrorIs(t, a.SelectAnswer("1"), ErrInvalidAnswer)

	snap := a.Snapshot()
	assert.Equal(t, "A", snap.Answers[0], "re-selecting overwrites")
}

func TestTimerExpiryFinalizesExactlyOnce(t *testing.T) {
	cfg := fullConfig(7)
	cfg.Practice = nil
	cfg.Tiers = map[model.Difficulty][]model.Question{
		model.DifficultyEasy: makeQuestions(4, model.DifficultyEasy),
	}
	cfg.DurationSeconds = 3

	a, err := NewAttempt(cfg)
	require.NoError(t, err)
	require.NoError(t, a.SelectAnswer("A"))

	for i := 0; i < 2; i++ {
		p, err := a.Tick()
		require.NoError(t, err)
		assert.Nil(t, p)
	}

	p, err := a.Tick()
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, ProgressFinalized, p.Kind)
	assert.Equal(t, 3, p.Result.TimeSpent)

	// A manual submit racing in after expiry must not produce a second Result.
	_, err = a.Submit()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, err = a.Tick()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestManualSubmitBlocksLaterTicks(t *testing.T) {
	cfg := fullConfig(8)
	cfg.Practice = nil
	cfg.Tiers = map[model.Difficulty][]model.Question{
		model.DifficultyHard: makeQuestions(2, model.DifficultyHard),
	}

	a, err := NewAttempt(cfg)
	require.NoError(t, err)

	p, err := a.Submit()
	require.NoError(t, err)
	require.Equal(t, ProgressFinalized, p.Kind)

	_, err = a.Tick()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, err = a.Next()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestTimeRemainingIsMonotonic(t *testing.T) {
	cfg := fullConfig(9)
	cfg.DurationSeconds = 100

	a, err := NewAttempt(cfg)
	require.NoError(t, err)

	prev := a.TimeRemaining()
	for i := 0; i < 10; i++ {
		_, err := a.Tick()
		require.NoError(t, err)
		cur := a.TimeRemaining()
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 90, a.TimeRemaining())
}

func TestSnapshotRestoreResumesExactly(t *testing.T) {
	cfg := fullConfig(10)
	a, err := NewAttempt(cfg)
	require.NoError(t, err)

	// Finish practice (all correct → hard tier).
	for i := 0; i < 5; i++ {
		answerAndNext(t, a, "A")
	}
	require.Equal(t, model.PhaseMain, a.Phase())

	require.NoError(t, a.SelectAnswer("A"))
	require.NoError(t, a.JumpTo(3))
	require.NoError(t, a.ToggleFlag(3))

	snap := a.Snapshot()
	snap.TimeRemaining = 120
	originalOrder := snap.QuestionOrder

	// Fresh attempt with a different shuffle seed, then restore.
	cfg2 := cfg
	cfg2.Rand = rand.New(rand.NewSource(999))
	b, err := NewAttempt(cfg2)
	require.NoError(t, err)
	require.NoError(t, b.Restore(snap))

	assert.Equal(t, 3, b.Position(), "resumes at the saved position, not defaults")
	assert.Equal(t, 120, b.TimeRemaining())
	assert.Equal(t, model.PhaseMain, b.Phase())
	assert.Equal(t, model.DifficultyHard, b.AssignedTier())
	assert.Equal(t, []int{3}, b.FlaggedPositions())

	resumed := b.Snapshot()
	assert.Equal(t, originalOrder, resumed.QuestionOrder, "saved presentation order is re-applied")
	assert.Equal(t, "A", resumed.Answers[0], "answers survive the restore")
	require.NotNil(t, resumed.PracticeScore)
	assert.Equal(t, 100, *resumed.PracticeScore)
}

func TestRestoreRejectsUnknownQuestions(t *testing.T) {
	cfg := fullConfig(11)
	a, err := NewAttempt(cfg)
	require.NoError(t, err)

	snap := a.Snapshot()
	snap.QuestionOrder[0] = uuid.New() // question edited away since the checkpoint

	b, err := NewAttempt(cfg)
	require.NoError(t, err)
	assert.Error(t, b.Restore(snap))
}

func TestPracticeExhaustedTiersIsTerminal(t *testing.T) {
	cfg := fullConfig(12)
	cfg.Tiers = nil // practice exists but nothing to grade afterwards

	a, err := NewAttempt(cfg)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		answerAndNext(t, a, "A")
	}
	require.NoError(t, a.SelectAnswer("A"))
	_, err = a.Next()
	assert.ErrorIs(t, err, ErrNoQuestions)

	// The dead end finalizes the attempt so nothing keeps driving it.
	assert.True(t, a.Submitted())
	_, err = a.Tick()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, err = a.Submit()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestExpiryWithExhaustedTiersIsTerminal(t *testing.T) {
	cfg := fullConfig(13)
	cfg.Tiers = nil
	cfg.DurationSeconds = 1

	a, err := NewAttempt(cfg)
	require.NoError(t, err)

	// Expiry mid-practice tries to grade and finds no tier to assign.
	// That must finalize the attempt, not leave it ticking forever.
	_, err = a.Tick()
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.True(t, a.Submitted())

	_, err = a.Tick()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}
