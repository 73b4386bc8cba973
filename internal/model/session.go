package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the attempt phase. Transitions are forward-only:
// practice → main. The transient loading state before questions arrive
// is never persisted.
type Phase string

const (
	PhasePractice Phase = "practice"
	PhaseMain     Phase = "main"
)

// SessionSnapshot is the persisted checkpoint of an in-progress attempt,
// keyed by (test, student). Restoring it resumes the attempt exactly
// where it left off.
type SessionSnapshot struct {
	TestID           uuid.UUID      `json:"test_id"`
	StudentID        int            `json:"student_id"`
	Answers          map[int]string `json:"answers"`
	CurrentQuestion  int            `json:"currentQuestion"`
	TimeRemaining    int            `json:"timeRemaining"`
	MarkedForReview  []int          `json:"markedForReview"`
	QuestionOrder    []uuid.UUID    `json:"questionOrder"`
	DifficultyLevel  *Difficulty    `json:"difficultyLevel"`
	PracticeComplete bool           `json:"practiceComplete"`
	PracticeScore    *int           `json:"practiceScore,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	LastSavedAt      time.Time      `json:"lastSavedAt"`
}
