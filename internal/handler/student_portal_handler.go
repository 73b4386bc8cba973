package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skylearn/assess-backend/internal/assessment"
	"github.com/skylearn/assess-backend/internal/middleware"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/response"
	"github.com/skylearn/assess-backend/internal/service"
	"github.com/skylearn/assess-backend/internal/validator"
)

// StudentPortalHandler handles the student-facing test delivery endpoints.
type StudentPortalHandler struct {
	attemptService *service.AttemptService
	studentService *service.StudentService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(attemptService *service.AttemptService, studentService *service.StudentService) *StudentPortalHandler {
	return &StudentPortalHandler{
		attemptService: attemptService,
		studentService: studentService,
	}
}

// EnterTest godoc
// POST /api/v1/student/attempts
// Validates a test code and starts a new attempt, or resumes a saved one.
func (h *StudentPortalHandler) EnterTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.EnterTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	la, resumed, err := h.attemptService.StartOrResume(c.Request.Context(), student, req.TestCode)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusCreated, attemptState(la, resumed))
}

// GetAttemptState godoc
// GET /api/v1/student/attempts/:test_id/state
// Returns the current state of a live attempt, for page reload recovery.
func (h *StudentPortalHandler) GetAttemptState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	la, err := h.attemptService.Get(testID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}

	response.Success(c, http.StatusOK, attemptState(la, la.Resumed()))
}

// GetOwnResults godoc
// GET /api/v1/student/results
// Lists the authenticated student's finalized results.
func (h *StudentPortalHandler) GetOwnResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.attemptService.GetOwnResults(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// attemptState projects a live attempt into the client-facing shape
// shared by the REST state endpoint and the WebSocket state event.
func attemptState(la *service.LiveAttempt, resumed bool) gin.H {
	snap := la.Attempt.Snapshot()

	var tier model.Difficulty
	if snap.DifficultyLevel != nil {
		tier = *snap.DifficultyLevel
	}

	return gin.H{
		"test_id":         la.Key.TestID,
		"phase":           la.Attempt.Phase(),
		"difficultyLevel": tier,
		"questions":       la.Attempt.PresentedQuestions(),
		"currentQuestion": snap.CurrentQuestion,
		"timeRemaining":   snap.TimeRemaining,
		"answers":         snap.Answers,
		"markedForReview": snap.MarkedForReview,
		"resumed":         resumed,
	}
}

// mapAttemptError translates attempt lifecycle errors to HTTP codes.
func mapAttemptError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrInvalidTestCode):
		return http.StatusNotFound, response.ErrInvalidTestCode
	case errors.Is(err, service.ErrTestNotActive):
		return http.StatusForbidden, response.ErrTestNotActive
	case errors.Is(err, service.ErrTestNotTargeted):
		return http.StatusForbidden, response.ErrTestNotTargeted
	case errors.Is(err, service.ErrTestAlreadyTaken):
		return http.StatusConflict, response.ErrTestAlreadyTaken
	case errors.Is(err, assessment.ErrNoQuestions):
		return http.StatusConflict, response.ErrNoQuestions
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
