package model

import (
	"time"

	"github.com/google/uuid"
)

// Test represents an authored assessment students locate by test code.
type Test struct {
	ID              uuid.UUID `json:"id"`
	TestCode        string    `json:"test_code"`
	Title           string    `json:"title"`
	Subject         string    `json:"subject"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	TargetGrade     string    `json:"target_grade,omitempty"`
	TargetSection   string    `json:"target_section,omitempty"`
	IsActive        bool      `json:"is_active"`
	TeacherID       int       `json:"teacher_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateTestRequest is the payload for creating a new test.
// The test code is generated server-side from the subject.
type CreateTestRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	Subject         string `json:"subject" binding:"required,min=2,max=50"`
	Description     string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
	TargetGrade     string `json:"target_grade" binding:"omitempty,max=10"`
	TargetSection   string `json:"target_section" binding:"omitempty,max=10"`
}

// UpdateTestRequest is the payload for updating an existing test.
type UpdateTestRequest struct {
	Title           string `json:"title" binding:"omitempty,min=3,max=255"`
	Description     string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	TargetGrade     string `json:"target_grade" binding:"omitempty,max=10"`
	TargetSection   string `json:"target_section" binding:"omitempty,max=10"`
	IsActive        *bool  `json:"is_active" binding:"omitempty"`
}

// EnterTestRequest is the payload for a student entering a test code.
// 6 characters: subject prefix followed by 5 alphanumerics. Case-insensitive
// on entry; normalized to uppercase before lookup.
type EnterTestRequest struct {
	TestCode string `json:"test_code" binding:"required,len=6,alphanum"`
}

// TestPayload is the Redis-cached payload sent to students (no correct answers).
// Questions are grouped per difficulty tier so the attempt runtime can shuffle
// the practice set and the assigned tier independently.
type TestPayload struct {
	TestID   uuid.UUID                         `json:"test_id"`
	Title    string                            `json:"title"`
	Subject  string                            `json:"subject"`
	Duration int                               `json:"duration_minutes"`
	Tiers    map[Difficulty][]QuestionForStudent `json:"tiers"`
}

// TierCount returns the number of questions cached for the given tier.
func (p *TestPayload) TierCount(d Difficulty) int {
	return len(p.Tiers[d])
}
