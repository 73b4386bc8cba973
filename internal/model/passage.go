package model

import (
	"time"

	"github.com/google/uuid"
)

// Passage represents a reading passage shared by a group of questions.
type Passage struct {
	ID          uuid.UUID `json:"id"`
	TestID      uuid.UUID `json:"test_id"`
	PassageCode string    `json:"passage_code"`
	Title       *string   `json:"title,omitempty"`
	Content     string    `json:"content"`
	MediaURL    *string   `json:"media_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AddPassageRequest is the payload for attaching a passage to a test.
type AddPassageRequest struct {
	PassageCode string  `json:"passage_code" binding:"required,min=1,max=20"`
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Content     string  `json:"content" binding:"required,min=1"`
	MediaURL    *string `json:"media_url" binding:"omitempty,url"`
}
