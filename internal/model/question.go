package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Difficulty is the tier classification of a question.
type Difficulty string

const (
	DifficultyPractice Difficulty = "practice"
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
)

// MainTiers lists the graded tiers in probing order (easy first).
var MainTiers = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

type QuestionType string

const (
	QuestionTypeMCQ QuestionType = "mcq"
)

// MediaKind tags the optional media reference attached to a question.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// Question represents a single test question. Immutable once fetched
// for an attempt.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	TestID        uuid.UUID       `json:"test_id"`
	PassageID     *uuid.UUID      `json:"passage_id,omitempty"`
	QuestionType  QuestionType    `json:"question_type"`
	Difficulty    Difficulty      `json:"difficulty"`
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	Marks         int             `json:"marks"`
	OrderIndex    int             `json:"order_index"`
	MediaURL      *string         `json:"media_url,omitempty"`
	MediaType     *MediaKind      `json:"media_type,omitempty"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           uuid.UUID       `json:"id"`
	PassageID    *uuid.UUID      `json:"passage_id,omitempty"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options"`
	Marks        int             `json:"marks"`
	OrderIndex   int             `json:"order_index"`
	MediaURL     *string         `json:"media_url,omitempty"`
	MediaType    *MediaKind      `json:"media_type,omitempty"`
}

// ForStudent strips the correct answer from a question.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		PassageID:    q.PassageID,
		QuestionText: q.QuestionText,
		Options:      q.Options,
		Marks:        q.Marks,
		OrderIndex:   q.OrderIndex,
		MediaURL:     q.MediaURL,
		MediaType:    q.MediaType,
	}
}

// AddQuestionRequest is the payload for adding a question to a test.
type AddQuestionRequest struct {
	PassageID     *uuid.UUID      `json:"passage_id" binding:"omitempty"`
	QuestionType  string          `json:"question_type" binding:"required,oneof=mcq"`
	Difficulty    string          `json:"difficulty" binding:"required,oneof=practice easy medium hard"`
	QuestionText  string          `json:"question_text" binding:"required,min=1,max=2000"`
	Options       json.RawMessage `json:"options" binding:"required"`
	CorrectAnswer string          `json:"correct_answer" binding:"required,len=1,uppercase"`
	Marks         int             `json:"marks" binding:"min=0"`
	OrderIndex    int             `json:"order_index" binding:"min=0"`
	MediaURL      *string         `json:"media_url" binding:"omitempty,url"`
	MediaType     *string         `json:"media_type" binding:"omitempty,oneof=image audio video"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a test's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
