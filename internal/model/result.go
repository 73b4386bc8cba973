package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the immutable summary of a completed attempt. Created once
// at submission, never mutated.
type Result struct {
	ID              uuid.UUID      `json:"id"`
	TestID          uuid.UUID      `json:"test_id"`
	StudentID       int            `json:"student_id"`
	Score           int            `json:"score"`
	CorrectAnswers  int            `json:"correct_answers"`
	WrongAnswers    int            `json:"wrong_answers"`
	TotalQuestions  int            `json:"total_questions"`
	DifficultyLevel Difficulty     `json:"difficulty_level"`
	PracticeScore   *int           `json:"practice_score,omitempty"`
	TimeSpent       int            `json:"time_spent"`
	Answers         map[int]string `json:"answers"`
	CompletedAt     time.Time      `json:"completed_at"`
}
