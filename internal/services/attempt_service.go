package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/openclass/quiz-service/internal/events"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/policy"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	publisher events.Publisher
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, publisher events.Publisher, v *validator.Validator, logger *slog.Logger) AttemptService {
	return &attemptService{
		repo:      repo,
		publisher: publisher,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit grades a completed answer sheet. Preconditions are checked in
// a fixed order so a caller failing several gets the same error every
// time: quiz visibility, attempt budget, answer shape.
func (s *attemptService) Submit(ctx context.Context, actor Actor, quizID uint, req *models.SubmitAttemptRequest) (*models.AttemptResult, error) {
	if !policy.Decide(actor.Role, policy.AttemptSubmit, actor.ID, 0) {
		return nil, NewPermissionError("only students submit attempts")
	}
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("quiz", quizID)
		}
		return nil, NewStoreError("get quiz", err)
	}
	// A quiz the student may not take does not exist for them.
	if !quiz.IsPublished || !quiz.AllowsStudent(actor.ID) {
		return nil, NewNotFoundError("quiz", quizID)
	}

	// Checked again under the quiz lock below; this early check keeps
	// the precondition order stable for callers that fail several.
	prior, err := s.repo.Attempt().CountByQuizAndStudent(ctx, quizID, actor.ID)
	if err != nil {
		return nil, NewStoreError("count attempts", err)
	}
	if prior >= quiz.MaxAttempts {
		return nil, NewAttemptLimitError(quiz.MaxAttempts)
	}

	questionByID := make(map[uint]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questionByID[quiz.Questions[i].QuestionID] = &quiz.Questions[i].Question
	}

	// Every submitted answer must target a quiz question, once.
	seen := make(map[uint]bool, len(req.Answers))
	for _, a := range req.Answers {
		if _, ok := questionByID[a.QuestionID]; !ok {
			return nil, NewInvalidAnswerError("answer targets a question outside this quiz")
		}
		if seen[a.QuestionID] {
			return nil, NewInvalidAnswerError("duplicate answer for one question")
		}
		seen[a.QuestionID] = true
	}

	graded := make([]models.AttemptAnswer, 0, len(req.Answers))
	correct := 0
	for _, a := range req.Answers {
		isCorrect := gradeAnswer(questionByID[a.QuestionID], a.Answer)
		if isCorrect {
			correct++
		}
		graded = append(graded, models.AttemptAnswer{
			QuestionID: a.QuestionID,
			Answer:     a.Answer,
			IsCorrect:  isCorrect,
			TimeSpent:  a.TimeSpent,
		})
	}

	answersJSON, err := json.Marshal(graded)
	if err != nil {
		return nil, NewStoreError("encode answers", err)
	}

	totalQuestions := len(quiz.Questions)
	pct := percentage(correct, totalQuestions)
	submittedAt := s.now()

	attempt := &models.QuizAttempt{
		QuizID:      quizID,
		StudentID:   actor.ID,
		Answers:     answersJSON,
		Score:       correct,
		Percentage:  pct,
		Passed:      pct >= float64(quiz.PassingScore),
		TimeSpent:   req.TimeSpent,
		StartedAt:   submittedAt.Add(-time.Duration(req.TimeSpent) * time.Second),
		SubmittedAt: submittedAt,
	}

	// Attempt row and both rolling aggregates commit or roll back
	// together. The quiz row lock serializes concurrent submissions so
	// the attempt count, the attempt number and the recomputed
	// aggregates never miss a committed attempt.
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		locked, err := tx.Quiz().GetByIDForUpdate(ctx, quizID)
		if err != nil {
			return err
		}

		prior, err := tx.Attempt().CountByQuizAndStudent(ctx, quizID, actor.ID)
		if err != nil {
			return err
		}
		if prior >= locked.MaxAttempts {
			return NewAttemptLimitError(locked.MaxAttempts)
		}
		attempt.AttemptNumber = prior + 1

		if err := tx.Attempt().Create(ctx, attempt); err != nil {
			return err
		}

		quizAgg, err := tx.Attempt().AggregateByQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		locked.TotalAttempts = quizAgg.Count
		locked.AverageScore = quizAgg.AveragePercentage
		if err := tx.Quiz().Update(ctx, locked); err != nil {
			return err
		}

		student, err := tx.User().GetByIDForUpdate(ctx, actor.ID)
		if err != nil {
			return err
		}
		studentAgg, err := tx.Attempt().AggregateByStudent(ctx, actor.ID)
		if err != nil {
			return err
		}
		student.TotalQuizzesTaken = studentAgg.Count
		student.AverageScore = studentAgg.AveragePercentage
		return tx.User().Update(ctx, student)
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, NewStoreError("persist attempt", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.TypeAttemptSubmitted, events.AttemptSubmittedEvent{
		AttemptID:     attempt.ID,
		QuizID:        quizID,
		StudentID:     actor.ID,
		AttemptNumber: attempt.AttemptNumber,
		Percentage:    attempt.Percentage,
		Passed:        attempt.Passed,
	}))

	s.logger.InfoContext(ctx, "attempt submitted",
		"attempt_id", attempt.ID,
		"quiz_id", quizID,
		"student_id", actor.ID,
		"attempt_number", attempt.AttemptNumber,
		"percentage", attempt.Percentage,
		"passed", attempt.Passed)

	return &models.AttemptResult{
		AttemptID:      attempt.ID,
		QuizID:         quizID,
		Score:          attempt.Score,
		TotalQuestions: totalQuestions,
		Percentage:     attempt.Percentage,
		Passed:         attempt.Passed,
		TimeSpent:      attempt.TimeSpent,
		AttemptNumber:  attempt.AttemptNumber,
		SubmittedAt:    attempt.SubmittedAt,
	}, nil
}

func (s *attemptService) GetByID(ctx context.Context, actor Actor, id uint) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("attempt", id)
		}
		return nil, NewStoreError("get attempt", err)
	}
	if policy.Decide(actor.Role, policy.AttemptView, actor.ID, attempt.StudentID) {
		return attempt, nil
	}
	// Teachers read attempts through quizzes they own.
	if actor.Role == models.RoleTeacher {
		quiz, err := s.repo.Quiz().GetByID(ctx, attempt.QuizID)
		if err == nil && quiz.CreatedBy == actor.ID {
			return attempt, nil
		}
	}
	return nil, NewPermissionError("cannot view this attempt")
}

func (s *attemptService) ListForStudent(ctx context.Context, actor Actor, studentID uint, limit int) ([]models.QuizAttempt, error) {
	if actor.Role != models.RoleTeacher &&
		!policy.Decide(actor.Role, policy.AttemptView, actor.ID, studentID) {
		return nil, NewPermissionError("cannot view these attempts")
	}

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilter{StudentID: &studentID})
	if err != nil {
		return nil, NewStoreError("list attempts", err)
	}

	// A teacher's window on the student is the attempts against the
	// teacher's own quizzes.
	if actor.Role == models.RoleTeacher {
		owned, err := ownedQuizSet(ctx, s.repo, actor.ID)
		if err != nil {
			return nil, NewStoreError("list quizzes", err)
		}
		kept := attempts[:0]
		for i := range attempts {
			if owned[attempts[i].QuizID] {
				kept = append(kept, attempts[i])
			}
		}
		attempts = kept
	}
	if limit > 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

func (s *attemptService) ListForQuiz(ctx context.Context, actor Actor, quizID uint) ([]models.QuizAttempt, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("quiz", quizID)
		}
		return nil, NewStoreError("get quiz", err)
	}
	if !policy.Decide(actor.Role, policy.AnalyticsQuiz, actor.ID, quiz.CreatedBy) {
		return nil, NewPermissionError("cannot view attempts for this quiz")
	}
	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilter{QuizID: &quizID})
	if err != nil {
		return nil, NewStoreError("list attempts", err)
	}
	return attempts, nil
}

func (s *attemptService) publishEvent(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "event publish failed", "event_type", event.Type, "error", err)
	}
}
