package assessment

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skylearn/assess-backend/internal/model"
)

// Attempt errors.
var (
	ErrAlreadySubmitted   = errors.New("attempt already submitted")
	ErrPositionOutOfRange = errors.New("question position out of range")
	ErrInvalidAnswer      = errors.New("answer must be a single option letter")
)

// Config carries everything an attempt needs up front: the question
// pools per tier, the countdown budget, and an injectable random source
// so shuffles are reproducible in tests.
type Config struct {
	TestID          uuid.UUID
	StudentID       int
	DurationSeconds int
	Practice        []model.Question
	Tiers           map[model.Difficulty][]model.Question
	Rand            *rand.Rand
	Now             func() time.Time
}

// ProgressKind describes what a navigation or submit call did.
type ProgressKind string

const (
	// ProgressAdvanced means the position moved within the current phase.
	ProgressAdvanced ProgressKind = "advanced"
	// ProgressPhaseChanged means the practice phase was scored and the
	// attempt moved to the main phase at the assigned tier.
	ProgressPhaseChanged ProgressKind = "phase_changed"
	// ProgressFinalized means the attempt was submitted and a Result produced.
	ProgressFinalized ProgressKind = "finalized"
)

// Progress is returned by Next and Submit so the caller can react to
// phase transitions and finalization.
type Progress struct {
	Kind          ProgressKind
	PracticeScore int              // set when Kind == ProgressPhaseChanged
	AssignedTier  model.Difficulty // set when Kind == ProgressPhaseChanged
	Result        *model.Result    // set when Kind == ProgressFinalized
}

// Attempt is one student's live pass through a test. All mutating
// methods are serialized by a single mutex; the finalized flag is the
// one-shot guard that keeps a timer expiry and a manual submit from
// both producing a Result.
type Attempt struct {
	mu  sync.Mutex
	cfg Config

	questions        []model.Question
	answers          map[int]string
	position         int
	timeRemaining    int
	flagged          map[int]struct{}
	phase            model.Phase
	assignedTier     model.Difficulty
	practiceComplete bool
	practiceScore    *int
	startedAt        time.Time
	finalized        bool
}

// NewAttempt builds a fresh attempt. If practice-tier questions exist
// the attempt starts in the practice phase with a shuffled practice set;
// otherwise it starts directly in the main phase at the first tier that
// has questions, skipping practice scoring entirely. ErrNoQuestions is
// returned when no tier has anything to serve.
func NewAttempt(cfg Config) (*Attempt, error) {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	a := &Attempt{
		cfg:           cfg,
		answers:       make(map[int]string),
		flagged:       make(map[int]struct{}),
		timeRemaining: cfg.DurationSeconds,
		startedAt:     cfg.Now(),
	}

	if len(cfg.Practice) > 0 {
		a.phase = model.PhasePractice
		a.questions = Shuffle(cfg.Rand, cfg.Practice)
		return a, nil
	}

	// No practice questions: probe easy, medium, hard and begin grading
	// immediately at the first non-empty tier.
	tier, err := FirstAvailableTier(a.tierCounts())
	if err != nil {
		return nil, err
	}

	a.phase = model.PhaseMain
	a.practiceComplete = true
	a.assignedTier = tier
	a.questions = Shuffle(cfg.Rand, cfg.Tiers[tier])
	return a, nil
}

func (a *Attempt) tierCounts() TierCounts {
	return TierCounts{
		Easy:   len(a.cfg.Tiers[model.DifficultyEasy]),
		Medium: len(a.cfg.Tiers[model.DifficultyMedium]),
		Hard:   len(a.cfg.Tiers[model.DifficultyHard]),
	}
}

// Phase returns the current phase.
func (a *Attempt) Phase() model.Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// AssignedTier returns the tier chosen at the practice→main transition,
// or "" while still in practice.
func (a *Attempt) AssignedTier() model.Difficulty {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.assignedTier
}

// Position returns the current question position.
func (a *Attempt) Position() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position
}

// TimeRemaining returns the countdown value in seconds.
func (a *Attempt) TimeRemaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeRemaining
}

// QuestionCount returns the length of the presented question list.
func (a *Attempt) QuestionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.questions)
}

// CurrentQuestion returns the question at the current position, stripped
// of its correct answer.
func (a *Attempt) CurrentQuestion() model.QuestionForStudent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.questions[a.position].ForStudent()
}

// PresentedQuestions returns the full shuffled list for the current
// phase, stripped of correct answers.
func (a *Attempt) PresentedQuestions() []model.QuestionForStudent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.QuestionForStudent, len(a.questions))
	for i := range a.questions {
		out[i] = a.questions[i].ForStudent()
	}
	return out
}

// SelectAnswer binds the current position to an option letter.
// Re-selecting overwrites the previous letter.
func (a *Attempt) SelectAnswer(letter string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return ErrAlreadySubmitted
	}
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return ErrInvalidAnswer
	}
	a.answers[a.position] = letter
	return nil
}

// Next advances the position. On the final practice question it scores
// the practice set and transitions to the main phase; on the final main
// question it finalizes the attempt.
func (a *Attempt) Next() (*Progress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return nil, ErrAlreadySubmitted
	}

	if a.position < len(a.questions)-1 {
		a.position++
		return &Progress{Kind: ProgressAdvanced}, nil
	}

	if a.phase == model.PhasePractice {
		return a.completePractice()
	}
	return a.finalize()
}

// Prev moves back one question. No-op at position 0.
func (a *Attempt) Prev() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return ErrAlreadySubmitted
	}
	if a.position > 0 {
		a.position--
	}
	return nil
}

// JumpTo moves directly to any position in [0, len-1]. Used by the
// question-overview control.
func (a *Attempt) JumpTo(pos int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return ErrAlreadySubmitted
	}
	if pos < 0 || pos >= len(a.questions) {
		return ErrPositionOutOfRange
	}
	a.position = pos
	return nil
}

// ToggleFlag adds or removes the review flag on a position.
func (a *Attempt) ToggleFlag(pos int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return ErrAlreadySubmitted
	}
	if pos < 0 || pos >= len(a.questions) {
		return ErrPositionOutOfRange
	}
	if _, ok := a.flagged[pos]; ok {
		delete(a.flagged, pos)
	} else {
		a.flagged[pos] = struct{}{}
	}
	return nil
}

// FlaggedPositions returns the review flags in ascending order.
func (a *Attempt) FlaggedPositions() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flaggedLocked()
}

func (a *Attempt) flaggedLocked() []int {
	out := make([]int, 0, len(a.flagged))
	for pos := range a.flagged {
		out = append(out, pos)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Tick decrements the countdown by one second. Reaching zero invokes the
// same finalization path as a manual submit, exactly once; a Result is
// returned on that tick only.
func (a *Attempt) Tick() (*Progress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return nil, ErrAlreadySubmitted
	}
	if a.timeRemaining > 0 {
		a.timeRemaining--
	}
	if a.timeRemaining > 0 {
		return nil, nil
	}

	// Time expired mid-practice: the attempt never reached a graded
	// phase, so score whatever tier the practice would have assigned.
	if a.phase == model.PhasePractice {
		if _, err := a.completePractice(); err != nil {
			return nil, err
		}
	}
	return a.finalize()
}

// Submit finalizes the main phase. During practice it completes the
// practice phase instead, mirroring "submit on the last practice
// question". The finalized guard makes a racing timer expiry and manual
// submit produce exactly one Result.
func (a *Attempt) Submit() (*Progress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return nil, ErrAlreadySubmitted
	}
	if a.phase == model.PhasePractice {
		return a.completePractice()
	}
	return a.finalize()
}

// Submitted reports whether finalization has happened.
func (a *Attempt) Submitted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finalized
}

// completePractice scores the practice set, assigns the main tier, and
// resets answers, position, and flags for a fresh review cycle.
// Callers must hold the mutex.
func (a *Attempt) completePractice() (*Progress, error) {
	score, _, err := ComputeScore(a.questions, a.answers)
	if err != nil {
		return nil, fmt.Errorf("score practice: %w", err)
	}

	tier, err := AssignTier(score, a.tierCounts())
	if err != nil {
		// No main tier has anything to serve. The attempt cannot
		// continue past practice, so it ends here without a Result.
		a.finalized = true
		return nil, err
	}

	a.practiceScore = &score
	a.assignedTier = tier
	a.practiceComplete = true
	a.phase = model.PhaseMain
	a.answers = make(map[int]string)
	a.position = 0
	a.flagged = make(map[int]struct{})
	a.questions = Shuffle(a.cfg.Rand, a.cfg.Tiers[tier])

	return &Progress{
		Kind:          ProgressPhaseChanged,
		PracticeScore: score,
		AssignedTier:  tier,
	}, nil
}

// finalize computes the final score and produces the immutable Result.
// Callers must hold the mutex.
func (a *Attempt) finalize() (*Progress, error) {
	score, correct, err := ComputeScore(a.questions, a.answers)
	if err != nil {
		return nil, fmt.Errorf("score attempt: %w", err)
	}

	a.finalized = true

	answers := make(map[int]string, len(a.answers))
	for pos, letter := range a.answers {
		answers[pos] = letter
	}

	total := len(a.questions)
	result := &model.Result{
		TestID:          a.cfg.TestID,
		StudentID:       a.cfg.StudentID,
		Score:           score,
		CorrectAnswers:  correct,
		WrongAnswers:    total - correct,
		TotalQuestions:  total,
		DifficultyLevel: a.assignedTier,
		PracticeScore:   a.practiceScore,
		TimeSpent:       a.cfg.DurationSeconds - a.timeRemaining,
		Answers:         answers,
		CompletedAt:     a.cfg.Now(),
	}

	return &Progress{Kind: ProgressFinalized, Result: result}, nil
}

// Snapshot captures the serializable checkpoint of the attempt,
// including the presented question order so answers keyed by position
// line up after a restore.
func (a *Attempt) Snapshot() *model.SessionSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	answers := make(map[int]string, len(a.answers))
	for pos, letter := range a.answers {
		answers[pos] = letter
	}

	order := make([]uuid.UUID, len(a.questions))
	for i := range a.questions {
		order[i] = a.questions[i].ID
	}

	var tier *model.Difficulty
	if a.assignedTier != "" {
		t := a.assignedTier
		tier = &t
	}

	return &model.SessionSnapshot{
		TestID:           a.cfg.TestID,
		StudentID:        a.cfg.StudentID,
		Answers:          answers,
		CurrentQuestion:  a.position,
		TimeRemaining:    a.timeRemaining,
		MarkedForReview:  a.flaggedLocked(),
		QuestionOrder:    order,
		DifficultyLevel:  tier,
		PracticeComplete: a.practiceComplete,
		PracticeScore:    a.practiceScore,
		StartedAt:        a.startedAt,
		LastSavedAt:      a.cfg.Now(),
	}
}

// Restore overwrites the freshly-initialized attempt with a checkpoint.
// Must be called before the first question is served. The saved question
// order is re-applied so sparse answers map onto the same questions the
// student originally saw.
func (a *Attempt) Restore(snap *model.SessionSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return ErrAlreadySubmitted
	}

	if snap.PracticeComplete {
		a.phase = model.PhaseMain
		a.practiceComplete = true
		a.practiceScore = snap.PracticeScore
		if snap.DifficultyLevel != nil {
			a.assignedTier = *snap.DifficultyLevel
		}
	} else {
		a.phase = model.PhasePractice
	}

	pool := a.cfg.Practice
	if a.phase == model.PhaseMain {
		pool = a.cfg.Tiers[a.assignedTier]
	}

	ordered, err := reorder(pool, snap.QuestionOrder)
	if err != nil {
		return err
	}
	a.questions = ordered

	if snap.CurrentQuestion < 0 || snap.CurrentQuestion >= len(a.questions) {
		return ErrPositionOutOfRange
	}
	a.position = snap.CurrentQuestion

	a.timeRemaining = snap.TimeRemaining
	if a.timeRemaining < 0 {
		a.timeRemaining = 0
	}

	a.answers = make(map[int]string, len(snap.Answers))
	for pos, letter := range snap.Answers {
		if pos >= 0 && pos < len(a.questions) {
			a.answers[pos] = letter
		}
	}

	a.flagged = make(map[int]struct{}, len(snap.MarkedForReview))
	for _, pos := range snap.MarkedForReview {
		if pos >= 0 && pos < len(a.questions) {
			a.flagged[pos] = struct{}{}
		}
	}

	if !snap.StartedAt.IsZero() {
		a.startedAt = snap.StartedAt
	}
	return nil
}

// reorder arranges pool into the saved presentation order. Questions
// missing from the pool (edited after the checkpoint) fail the restore
// rather than silently shifting answer positions.
func reorder(pool []model.Question, order []uuid.UUID) ([]model.Question, error) {
	byID := make(map[uuid.UUID]model.Question, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}

	out := make([]model.Question, 0, len(order))
	for _, id := range order {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("question %s from checkpoint not in pool", id)
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrNoQuestions
	}
	return out, nil
}
