package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/openclass/quiz-service/internal/auth"
	"github.com/openclass/quiz-service/internal/events"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories/memory"
	"github.com/openclass/quiz-service/internal/validator"
)

type testEnv struct {
	repo      *memory.Repository
	publisher *events.MockPublisher
	manager   *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.NewRepository()
	publisher := events.NewMockPublisher(logger)

	manager, err := NewManager(ManagerConfig{
		Repo:      repo,
		Hasher:    auth.NewPasswordHasher(4),
		Tokens:    auth.NewTokenManager("test-secret", time.Hour),
		Publisher: publisher,
		Mail:      events.NewMailSender(publisher),
		Validator: validator.New(),
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	return &testEnv{repo: repo, publisher: publisher, manager: manager}
}

func (e *testEnv) seedUser(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	if err := e.repo.User().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return user
}

func (e *testEnv) actorFor(user *models.User) Actor {
	return Actor{ID: user.ID, Role: user.Role}
}

func mustOptions(t *testing.T, options []models.Option) []byte {
	t.Helper()
	data, err := json.Marshal(options)
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}
	return data
}

// seedChoiceQuestion stores a multiple choice question with option ids
// "a", "b", "c"; "b" is correct.
func (e *testEnv) seedChoiceQuestion(t *testing.T, creatorID uint) *models.Question {
	t.Helper()
	q := &models.Question{
		Type: models.MultipleChoice,
		Text: "What is 2+2?",
		Options: mustOptions(t, []models.Option{
			{ID: "a", Text: "3"},
			{ID: "b", Text: "4", IsCorrect: true},
			{ID: "c", Text: "5"},
		}),
		Difficulty: models.DifficultyEasy,
		Subject:    "math",
		CreatedBy:  creatorID,
	}
	if err := e.repo.Question().Create(context.Background(), q); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q
}

func (e *testEnv) seedTrueFalseQuestion(t *testing.T, creatorID uint) *models.Question {
	t.Helper()
	q := &models.Question{
		Type: models.TrueFalse,
		Text: "The sky is blue.",
		Options: mustOptions(t, []models.Option{
			{ID: "t", Text: "True", IsCorrect: true},
			{ID: "f", Text: "False"},
		}),
		Difficulty: models.DifficultyEasy,
		Subject:    "science",
		CreatedBy:  creatorID,
	}
	if err := e.repo.Question().Create(context.Background(), q); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q
}

func (e *testEnv) seedShortAnswerQuestion(t *testing.T, creatorID uint, answer string) *models.Question {
	t.Helper()
	q := &models.Question{
		Type:          models.ShortAnswer,
		Text:          "Capital of France?",
		CorrectAnswer: &answer,
		Difficulty:    models.DifficultyMedium,
		Subject:       "geography",
		CreatedBy:     creatorID,
	}
	if err := e.repo.Question().Create(context.Background(), q); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q
}

// seedQuiz stores a published quiz over the given questions with
// generous defaults.
func (e *testEnv) seedQuiz(t *testing.T, creatorID uint, published bool, maxAttempts int, questionIDs ...uint) *models.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz := &models.Quiz{
		Title:        "Seeded Quiz",
		TimeLimit:    30,
		MaxAttempts:  maxAttempts,
		PassingScore: 60,
		IsPublished:  published,
		CreatedBy:    creatorID,
	}
	if err := e.repo.Quiz().Create(ctx, quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	if err := e.repo.Quiz().ReplaceQuestions(ctx, quiz.ID, questionIDs); err != nil {
		t.Fatalf("seed quiz questions: %v", err)
	}
	loaded, err := e.repo.Quiz().GetByID(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("reload seeded quiz: %v", err)
	}
	return loaded
}
