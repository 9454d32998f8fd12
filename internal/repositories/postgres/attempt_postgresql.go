package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
)

type attemptStore struct {
	db *gorm.DB
}

func (s *attemptStore) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (s *attemptStore) GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := s.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt %d: %w", id, err)
	}
	return &attempt, nil
}

func (s *attemptStore) CountByQuizAndStudent(ctx context.Context, quizID, studentID uint) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(count), nil
}

func (s *attemptStore) List(ctx context.Context, filter repositories.AttemptFilter) ([]models.QuizAttempt, error) {
	query := s.db.WithContext(ctx).Model(&models.QuizAttempt{})

	if filter.QuizID != nil {
		query = query.Where("quiz_id = ?", *filter.QuizID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var attempts []models.QuizAttempt
	if err := query.Order("submitted_at DESC").Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// AggregateByQuiz recomputes count and mean percentage over the quiz's
// full attempt set in one query.
func (s *attemptStore) AggregateByQuiz(ctx context.Context, quizID uint) (repositories.AttemptAggregate, error) {
	return s.aggregate(ctx, "quiz_id = ?", quizID)
}

func (s *attemptStore) AggregateByStudent(ctx context.Context, studentID uint) (repositories.AttemptAggregate, error) {
	return s.aggregate(ctx, "student_id = ?", studentID)
}

func (s *attemptStore) aggregate(ctx context.Context, cond string, arg uint) (repositories.AttemptAggregate, error) {
	var row struct {
		Count int64
		Avg   float64
	}
	if err := s.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Select("COUNT(*) AS count, COALESCE(AVG(percentage), 0) AS avg").
		Where(cond, arg).
		Scan(&row).Error; err != nil {
		return repositories.AttemptAggregate{}, fmt.Errorf("aggregate attempts: %w", err)
	}
	return repositories.AttemptAggregate{
		Count:             int(row.Count),
		AveragePercentage: row.Avg,
	}, nil
}
