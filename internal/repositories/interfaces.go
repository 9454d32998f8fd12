package repositories

import (
	"context"
	"errors"

	"github.com/openclass/quiz-service/internal/models"
)

// ErrNotFound is returned by every store when the row does not exist,
// regardless of backend.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// UserFilter narrows user listings. Zero values match everything.
type UserFilter struct {
	Role     *models.UserRole
	IsActive *bool
	Search   string // matches name or email
	Page     int
	PageSize int
}

type QuestionFilter struct {
	Type       *models.QuestionType
	Difficulty *models.DifficultyLevel
	Subject    string
	CreatedBy  *uint
	Search     string
	Page       int
	PageSize   int
}

type QuizFilter struct {
	IsPublished *bool
	CreatedBy   *uint
	Search      string
	Page        int
	PageSize    int
}

type AttemptFilter struct {
	QuizID    *uint
	StudentID *uint
	Limit     int
}

// AttemptAggregate is the recomputed rollup over a full attempt set.
type AttemptAggregate struct {
	Count             int
	AveragePercentage float64
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByIDForUpdate locks the row until the enclosing transaction
	// ends, serializing concurrent writers.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter QuestionFilter) ([]models.Question, int64, error)
	AdjustUsage(ctx context.Context, id uint, delta int) error
}

type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	// GetByID loads the quiz with its question rows in position order.
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	// GetByIDForUpdate loads the bare quiz row under a write lock held
	// until the enclosing transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter QuizFilter) ([]models.Quiz, int64, error)
	// ReplaceQuestions swaps the quiz's question set for the given ids,
	// positions assigned in slice order.
	ReplaceQuestions(ctx context.Context, quizID uint, questionIDs []uint) error
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error)
	CountByQuizAndStudent(ctx context.Context, quizID, studentID uint) (int, error)
	List(ctx context.Context, filter AttemptFilter) ([]models.QuizAttempt, error)
	// AggregateByQuiz and AggregateByStudent recompute rollups from the
	// complete attempt set, not incrementally.
	AggregateByQuiz(ctx context.Context, quizID uint) (AttemptAggregate, error)
	AggregateByStudent(ctx context.Context, studentID uint) (AttemptAggregate, error)
}

// Repository aggregates the per-entity stores behind one handle so
// services hold a single dependency and transactions can rebind all of
// them to one unit of work.
type Repository interface {
	User() UserRepository
	Question() QuestionRepository
	Quiz() QuizRepository
	Attempt() AttemptRepository

	// WithTransaction runs fn against a Repository bound to a single
	// transaction, committing on nil and rolling back on error.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}
