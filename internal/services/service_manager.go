package services

import (
	"fmt"
	"log/slog"

	"github.com/openclass/quiz-service/internal/auth"
	"github.com/openclass/quiz-service/internal/events"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/validator"
)

// Manager wires every service over one repository and shared
// infrastructure, so transports hold a single dependency.
type Manager struct {
	users     UserService
	questions QuestionService
	quizzes   QuizService
	attempts  AttemptService
	analytics AnalyticsService
}

type ManagerConfig struct {
	Repo      repositories.Repository
	Hasher    *auth.PasswordHasher
	Tokens    *auth.TokenManager
	Publisher events.Publisher
	Mail      events.MailSender
	Validator *validator.Validator
	Logger    *slog.Logger
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if cfg.Hasher == nil || cfg.Tokens == nil {
		return nil, fmt.Errorf("credential stack is required")
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Mail == nil && cfg.Publisher != nil {
		cfg.Mail = events.NewMailSender(cfg.Publisher)
	}

	return &Manager{
		users:     NewUserService(cfg.Repo, cfg.Hasher, cfg.Tokens, cfg.Mail, cfg.Publisher, cfg.Validator, cfg.Logger),
		questions: NewQuestionService(cfg.Repo, cfg.Validator, cfg.Logger),
		quizzes:   NewQuizService(cfg.Repo, cfg.Publisher, cfg.Validator, cfg.Logger),
		attempts:  NewAttemptService(cfg.Repo, cfg.Publisher, cfg.Validator, cfg.Logger),
		analytics: NewAnalyticsService(cfg.Repo, cfg.Logger),
	}, nil
}

func (m *Manager) Users() UserService          { return m.users }
func (m *Manager) Questions() QuestionService  { return m.questions }
func (m *Manager) Quizzes() QuizService        { return m.quizzes }
func (m *Manager) Attempts() AttemptService    { return m.attempts }
func (m *Manager) Analytics() AnalyticsService { return m.analytics }
