package services

import (
	"context"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
)

// Actor identifies the authenticated caller of a service operation.
// Handlers build it from verified token claims.
type Actor struct {
	ID   uint
	Role models.UserRole
}

type UserService interface {
	// Register creates a student account. Role escalation goes through
	// CreateUser, which is admin-only.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (string, *models.User, error)
	CreateUser(ctx context.Context, actor Actor, req *models.CreateUserRequest) (*models.User, error)
	GetProfile(ctx context.Context, actor Actor, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, actor Actor, userID uint, req *models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, actor Actor, req *models.ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
	List(ctx context.Context, actor Actor, filter repositories.UserFilter) ([]models.User, int64, error)
	SetActive(ctx context.Context, actor Actor, userID uint, active bool) error
}

type QuestionService interface {
	Create(ctx context.Context, actor Actor, req *models.CreateQuestionRequest) (*models.Question, error)
	GetByID(ctx context.Context, actor Actor, id uint) (*models.Question, error)
	Update(ctx context.Context, actor Actor, id uint, req *models.UpdateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	List(ctx context.Context, actor Actor, filter repositories.QuestionFilter) ([]models.Question, int64, error)
}

type QuizService interface {
	Create(ctx context.Context, actor Actor, req *models.CreateQuizRequest) (*models.Quiz, error)
	// GetByID returns the full quiz for its manager. Students go
	// through GetForStudent, which sanitizes and gates on visibility.
	GetByID(ctx context.Context, actor Actor, id uint) (*models.Quiz, error)
	GetForStudent(ctx context.Context, actor Actor, id uint) (*models.StudentQuizView, error)
	Update(ctx context.Context, actor Actor, id uint, req *models.UpdateQuizRequest) (*models.Quiz, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Publish(ctx context.Context, actor Actor, id uint) (*models.Quiz, error)
	Unpublish(ctx context.Context, actor Actor, id uint) (*models.Quiz, error)
	SetQuestions(ctx context.Context, actor Actor, id uint, questionIDs []uint) (*models.Quiz, error)
	List(ctx context.Context, actor Actor, filter repositories.QuizFilter) ([]models.Quiz, int64, error)
}

type AttemptService interface {
	Submit(ctx context.Context, actor Actor, quizID uint, req *models.SubmitAttemptRequest) (*models.AttemptResult, error)
	GetByID(ctx context.Context, actor Actor, id uint) (*models.QuizAttempt, error)
	ListForStudent(ctx context.Context, actor Actor, studentID uint, limit int) ([]models.QuizAttempt, error)
	ListForQuiz(ctx context.Context, actor Actor, quizID uint) ([]models.QuizAttempt, error)
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, actor Actor) (*Dashboard, error)
	StudentPerformance(ctx context.Context, actor Actor, studentID uint) (*StudentPerformance, error)
	QuizStats(ctx context.Context, actor Actor, quizID uint) (*QuizStats, error)
	ExportQuizResults(ctx context.Context, actor Actor, quizID uint) ([]byte, error)
}
