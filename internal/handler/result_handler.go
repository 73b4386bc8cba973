package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skylearn/assess-backend/internal/middleware"
	"github.com/skylearn/assess-backend/internal/response"
	"github.com/skylearn/assess-backend/internal/service"
)

// ResultHandler handles teacher-facing result endpoints.
type ResultHandler struct {
	resultService *service.ResultService
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService) *ResultHandler {
	return &ResultHandler{resultService: resultService}
}

// ListTestResults godoc
// GET /api/v1/teacher/tests/:test_id/results?page=1&per_page=25
// Lists student results for a test, paginated, best score first.
func (h *ResultHandler) ListTestResults(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))

	results, pagination, err := h.resultService.ListByTest(c.Request.Context(), testID, claims.UserID, page, perPage)
	if err != nil {
		status, code := mapTestError(err)
		response.Fail(c, status, code)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// GetStudentResult godoc
// GET /api/v1/teacher/tests/:test_id/results/:student_id
// Returns one student's full result including the per-position answers.
func (h *ResultHandler) GetStudentResult(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.resultService.GetByTestAndStudent(c.Request.Context(), testID, claims.UserID, studentID)
	if err != nil {
		status, code := mapTestError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}
