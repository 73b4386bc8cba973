package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skylearn/assess-backend/internal/config"
	"github.com/skylearn/assess-backend/internal/handler"
	"github.com/skylearn/assess-backend/internal/middleware"
	"github.com/skylearn/assess-backend/internal/response"
	"github.com/skylearn/assess-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Test          *handler.TestHandler
	Question      *handler.QuestionHandler
	Result        *handler.ResultHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally. Question payloads with passages
	// compress well; the WebSocket upgrade path is skipped internally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.POST("/attempts", handlers.StudentPortal.EnterTest)
		studentAPI.GET("/attempts/:test_id/state", handlers.StudentPortal.GetAttemptState)
		studentAPI.GET("/results", handlers.StudentPortal.GetOwnResults)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:test_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		// Test authoring
		teacherAPI.GET("/tests", handlers.Test.ListTests)
		teacherAPI.POST("/tests", handlers.Test.CreateTest)
		teacherAPI.GET("/tests/:test_id", handlers.Test.GetTest)
		teacherAPI.PATCH("/tests/:test_id", handlers.Test.UpdateTest)
		teacherAPI.DELETE("/tests/:test_id", handlers.Test.DeleteTest)

		// Question authoring
		teacherAPI.GET("/tests/:test_id/questions", handlers.Question.ListQuestions)
		teacherAPI.POST("/tests/:test_id/questions", handlers.Question.AddQuestion)
		teacherAPI.PUT("/tests/:test_id/questions", handlers.Question.ReplaceQuestions)
		teacherAPI.DELETE("/tests/:test_id/questions/:question_id", handlers.Question.DeleteQuestion)

		// Reading passages
		teacherAPI.GET("/tests/:test_id/passages", handlers.Question.ListPassages)
		teacherAPI.POST("/tests/:test_id/passages", handlers.Question.AddPassage)

		// Results
		teacherAPI.GET("/tests/:test_id/results", handlers.Result.ListTestResults)
		teacherAPI.GET("/tests/:test_id/results/:student_id", handlers.Result.GetStudentResult)

		// Student roster
		teacherAPI.GET("/students", handlers.StudentMgmt.ListStudents)
		teacherAPI.POST("/students", handlers.StudentMgmt.CreateStudent)
		teacherAPI.DELETE("/students/:id", handlers.StudentMgmt.DeleteStudent)
		teacherAPI.POST("/students/:id/reset-session", handlers.StudentMgmt.ResetStudentSession)
	}

	return router
}
