package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openclass/quiz-service/internal/cache"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
)

type quizStore struct {
	db    *gorm.DB
	cache *cache.Cache
}

func (s *quizStore) Create(ctx context.Context, quiz *models.Quiz) error {
	if err := s.db.WithContext(ctx).Create(quiz).Error; err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// GetByID loads the quiz with its question rows, options included, in
// position order. Served through the cache; every write invalidates.
func (s *quizStore) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.cache.GetOrFetch(ctx, fmt.Sprintf("id:%d", id), &quiz, func() (interface{}, error) {
		var q models.Quiz
		if err := s.db.WithContext(ctx).
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("quiz_questions.position ASC")
			}).
			Preload("Questions.Question").
			First(&q, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("get quiz %d: %w", id, err)
		}
		return &q, nil
	})
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// GetByIDForUpdate loads the bare row with FOR UPDATE, bypassing the
// cache, so concurrent submissions against the quiz serialize.
func (s *quizStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&quiz, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock quiz %d: %w", id, err)
	}
	return &quiz, nil
}

func (s *quizStore) Update(ctx context.Context, quiz *models.Quiz) error {
	if err := s.db.WithContext(ctx).Omit("Questions").Save(quiz).Error; err != nil {
		return fmt.Errorf("update quiz %d: %w", quiz.ID, err)
	}
	s.invalidate(ctx, quiz.ID)
	return nil
}

// Delete removes the quiz with its question rows and attempts in one
// transaction.
func (s *quizStore) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&models.QuizQuestion{}).Error; err != nil {
			return fmt.Errorf("detach questions of quiz %d: %w", id, err)
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&models.QuizAttempt{}).Error; err != nil {
			return fmt.Errorf("delete attempts of quiz %d: %w", id, err)
		}
		if err := tx.Delete(&models.Quiz{}, id).Error; err != nil {
			return fmt.Errorf("delete quiz %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *quizStore) List(ctx context.Context, filter repositories.QuizFilter) ([]models.Quiz, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Quiz{})

	if filter.IsPublished != nil {
		query = query.Where("is_published = ?", *filter.IsPublished)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Search != "" {
		query = query.Where("title ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count quizzes: %w", err)
	}

	var quizzes []models.Quiz
	if err := query.Scopes(paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC, id DESC").
		Find(&quizzes).Error; err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, total, nil
}

// ReplaceQuestions swaps the quiz's question rows atomically, assigning
// positions in slice order.
func (s *quizStore) ReplaceQuestions(ctx context.Context, quizID uint, questionIDs []uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizQuestion{}).Error; err != nil {
			return fmt.Errorf("clear questions of quiz %d: %w", quizID, err)
		}
		if len(questionIDs) == 0 {
			return nil
		}
		rows := make([]models.QuizQuestion, len(questionIDs))
		for i, qid := range questionIDs {
			rows[i] = models.QuizQuestion{QuizID: quizID, QuestionID: qid, Position: i + 1}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("attach questions to quiz %d: %w", quizID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

func (s *quizStore) invalidate(ctx context.Context, id uint) {
	_ = s.cache.Delete(ctx, fmt.Sprintf("id:%d", id))
}
