package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openclass/quiz-service/internal/cache"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
)

type questionStore struct {
	db        *gorm.DB
	cache     *cache.Cache
	quizCache *cache.Cache
}

func (s *questionStore) Create(ctx context.Context, question *models.Question) error {
	if err := s.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// GetByID serves single-question reads through the cache; writes
// invalidate by id.
func (s *questionStore) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	err := s.cache.GetOrFetch(ctx, fmt.Sprintf("id:%d", id), &question, func() (interface{}, error) {
		var q models.Question
		if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("get question %d: %w", id, err)
		}
		return &q, nil
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (s *questionStore) GetByIDs(ctx context.Context, ids []uint) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var questions []models.Question
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("get questions by ids: %w", err)
	}
	return questions, nil
}

func (s *questionStore) Update(ctx context.Context, question *models.Question) error {
	if err := s.db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("update question %d: %w", question.ID, err)
	}
	s.invalidate(ctx, question.ID)
	s.invalidateQuizzes(ctx)
	return nil
}

func (s *questionStore) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.QuizQuestion{}).Error; err != nil {
			return fmt.Errorf("detach question %d from quizzes: %w", id, err)
		}
		if err := tx.Delete(&models.Question{}, id).Error; err != nil {
			return fmt.Errorf("delete question %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.invalidateQuizzes(ctx)
	return nil
}

func (s *questionStore) List(ctx context.Context, filter repositories.QuestionFilter) ([]models.Question, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Question{})

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Difficulty != nil {
		query = query.Where("difficulty = ?", *filter.Difficulty)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Search != "" {
		query = query.Where("text ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	var questions []models.Question
	if err := query.Scopes(paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC").
		Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	return questions, total, nil
}

func (s *questionStore) AdjustUsage(ctx context.Context, id uint, delta int) error {
	if err := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", delta)).Error; err != nil {
		return fmt.Errorf("adjust usage of question %d: %w", id, err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *questionStore) invalidate(ctx context.Context, id uint) {
	_ = s.cache.Delete(ctx, fmt.Sprintf("id:%d", id))
}

// invalidateQuizzes flushes every cached quiz; cached quizzes embed
// the question content that just changed.
func (s *questionStore) invalidateQuizzes(ctx context.Context) {
	_ = s.quizCache.InvalidatePattern(ctx, "*")
}
