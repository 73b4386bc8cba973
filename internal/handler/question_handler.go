package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skylearn/assess-backend/internal/middleware"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/response"
	"github.com/skylearn/assess-backend/internal/service"
	"github.com/skylearn/assess-backend/internal/validator"
)

// QuestionHandler handles question and passage authoring endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/teacher/tests/:test_id/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.questionService.ListByTest(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		status, code := mapTestError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/teacher/tests/:test_id/questions
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Add(c.Request.Context(), testID, claims.UserID, &req)
	if err != nil {
		status, code := mapTestError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceQuestions godoc
// PUT /api/v1/teacher/tests/:test_id/questions
// Replaces the full question set in one transaction (bulk editor save).
func (h *QuestionHandler) ReplaceQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.questionService.ReplaceAll(c.Request.Context(), testID, claims.UserID, &req); err != nil {
		status, code := mapTestError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// DeleteQuestion godoc
// DELETE /api/v1/teacher/tests/:test_id/questions/:question_id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), testID, questionID, claims.UserID); err != nil {
		if errors.Is(err, service.ErrQuestionNotInTest) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		status, code := mapTestError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListPassages godoc
// GET /api/v1/teacher/tests/:test_id/passages
func (h *QuestionHandler) ListPassages(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	passages, err := h.questionService.ListPassages(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		status, code := mapTestError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"passages": passages})
}

// AddPassage godoc
// POST /api/v1/teacher/tests/:test_id/passages
func (h *QuestionHandler) AddPassage(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddPassageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	passage, err := h.questionService.AddPassage(c.Request.Context(), testID, claims.UserID, &req)
	if err != nil {
		status, code := mapTestError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"passage": passage})
}
