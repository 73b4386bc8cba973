package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key for a student's login session (single device).
func (r *CacheKeyStruct) StudentLoginKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// AttemptSnapshotKey returns the cache key for a student's live attempt snapshot.
func (r *CacheKeyStruct) AttemptSnapshotKey(testID string, studentID int) string {
	return fmt.Sprintf("student:%d:test:%s:snapshot", studentID, testID)
}

// StudentActiveTestKey returns the cache key for a student's currently active test.
func (r *CacheKeyStruct) StudentActiveTestKey(studentID int) string {
	return fmt.Sprintf("student:%d:active_test", studentID)
}

// TestPayloadKey returns the cache key for a test's student-facing payload.
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// TestAnswerKeyKey returns the cache key for a test's answer key hash.
func (r *CacheKeyStruct) TestAnswerKeyKey(testID string) string {
	return fmt.Sprintf("test:%s:key", testID)
}

// TestCodeKey returns the cache key mapping a normalized test code to its test ID.
func (r *CacheKeyStruct) TestCodeKey(code string) string {
	return fmt.Sprintf("test_code:%s", code)
}

var CacheKey = NewCacheKeyStruct()
