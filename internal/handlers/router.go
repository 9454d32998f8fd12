package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openclass/quiz-service/internal/auth"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/services"
)

type HandlerManager struct {
	authHandler      *AuthHandler
	userHandler      *UserHandler
	questionHandler  *QuestionHandler
	quizHandler      *QuizHandler
	attemptHandler   *AttemptHandler
	analyticsHandler *AnalyticsHandler

	tokens *auth.TokenManager
	repo   repositories.Repository
	logger *slog.Logger
}

func NewHandlerManager(
	manager *services.Manager,
	tokens *auth.TokenManager,
	repo repositories.Repository,
	logger *slog.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:      NewAuthHandler(manager.Users(), logger),
		userHandler:      NewUserHandler(manager.Users(), logger),
		questionHandler:  NewQuestionHandler(manager.Questions(), logger),
		quizHandler:      NewQuizHandler(manager.Quizzes(), logger),
		attemptHandler:   NewAttemptHandler(manager.Attempts(), logger),
		analyticsHandler: NewAnalyticsHandler(manager.Analytics(), logger),
		tokens:           tokens,
		repo:             repo,
		logger:           logger,
	}
}

// SetupRoutes mounts every route on the router. Role middleware keeps
// obviously wrong callers out early; ownership checks live in the
// services.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")

	// Public credential endpoints.
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", hm.authHandler.Register)
		authRoutes.POST("/login", hm.authHandler.Login)
		authRoutes.POST("/forgot-password", hm.authHandler.ForgotPassword)
		authRoutes.POST("/reset-password", hm.authHandler.ResetPassword)
	}

	authed := v1.Group("")
	authed.Use(AuthMiddleware(hm.tokens))
	{
		me := authed.Group("/me")
		{
			me.GET("", hm.authHandler.Me)
			me.PUT("", hm.authHandler.UpdateMe)
			me.PUT("/password", hm.authHandler.ChangePassword)
			me.GET("/attempts", hm.attemptHandler.ListMine)
		}

		users := authed.Group("/users", RequireRole(models.RoleAdmin))
		{
			users.POST("", hm.userHandler.Create)
			users.GET("", hm.userHandler.List)
			users.GET("/:id", hm.userHandler.Get)
			users.PUT("/:id/active", hm.userHandler.SetActive)
		}

		questions := authed.Group("/questions", RequireRole(models.RoleTeacher, models.RoleAdmin))
		{
			questions.POST("", hm.questionHandler.Create)
			questions.GET("", hm.questionHandler.List)
			questions.GET("/:id", hm.questionHandler.Get)
			questions.PUT("/:id", hm.questionHandler.Update)
			questions.DELETE("/:id", hm.questionHandler.Delete)
		}

		quizzes := authed.Group("/quizzes")
		{
			quizzes.GET("", hm.quizHandler.List)
			quizzes.GET("/:id", hm.quizHandler.Get)
			quizzes.POST("/:id/attempts", RequireRole(models.RoleStudent), hm.attemptHandler.Submit)

			manage := quizzes.Group("", RequireRole(models.RoleTeacher, models.RoleAdmin))
			{
				manage.POST("", hm.quizHandler.Create)
				manage.PUT("/:id", hm.quizHandler.Update)
				manage.DELETE("/:id", hm.quizHandler.Delete)
				manage.POST("/:id/publish", hm.quizHandler.Publish)
				manage.POST("/:id/unpublish", hm.quizHandler.Unpublish)
				manage.PUT("/:id/questions", hm.quizHandler.SetQuestions)
				manage.GET("/:id/attempts", hm.attemptHandler.ListForQuiz)
				manage.GET("/:id/stats", hm.analyticsHandler.QuizStats)
				manage.GET("/:id/export", hm.analyticsHandler.ExportQuizResults)
			}
		}

		attempts := authed.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.Get)
		}

		analytics := authed.Group("/analytics")
		{
			analytics.GET("/dashboard", hm.analyticsHandler.Dashboard)
			analytics.GET("/students/:id", hm.analyticsHandler.StudentPerformance)
		}
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "up"
	if err := hm.repo.Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		dbStatus = "down"
		hm.logger.ErrorContext(c.Request.Context(), "health check failed", "error", err)
	}
	c.JSON(status, gin.H{
		"status":    dbStatus,
		"service":   "quiz-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SetupMiddleware installs the common middleware stack.
func SetupMiddleware(router *gin.Engine, logger *slog.Logger) {
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware())
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(SecurityMiddleware())
}

// RequestLogger emits one structured line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ContextRequestIDKey))
	}
}
