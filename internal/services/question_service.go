package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/policy"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	validator *validator.Validator
	logger    *slog.Logger
}

func NewQuestionService(repo repositories.Repository, v *validator.Validator, logger *slog.Logger) QuestionService {
	return &questionService{repo: repo, validator: v, logger: logger}
}

func (s *questionService) Create(ctx context.Context, actor Actor, req *models.CreateQuestionRequest) (*models.Question, error) {
	if !policy.Decide(actor.Role, policy.QuestionCreate, actor.ID, 0) {
		return nil, NewPermissionError("students cannot create questions")
	}
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}
	if errs := s.validator.ValidateQuestionContent(req.Type, req.Options, req.CorrectAnswer); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	options, err := encodeOptions(req.Options)
	if err != nil {
		return nil, NewStoreError("encode options", err)
	}
	tags, err := encodeTags(req.Tags)
	if err != nil {
		return nil, NewStoreError("encode tags", err)
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	question := &models.Question{
		Type:          req.Type,
		Text:          req.Text,
		Options:       options,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		Difficulty:    difficulty,
		Subject:       req.Subject,
		Tags:          tags,
		CreatedBy:     actor.ID,
	}
	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, NewStoreError("create question", err)
	}

	s.logger.InfoContext(ctx, "question created", "question_id", question.ID, "type", question.Type, "created_by", actor.ID)
	return question, nil
}

func (s *questionService) GetByID(ctx context.Context, actor Actor, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("question", id)
		}
		return nil, NewStoreError("get question", err)
	}
	// The full record carries the correct answer, so reads are scoped
	// like writes: admins see everything, teachers their own bank.
	if !policy.Decide(actor.Role, policy.QuestionView, actor.ID, question.CreatedBy) {
		return nil, NewPermissionError("cannot view a question you do not own")
	}
	return question, nil
}

func (s *questionService) Update(ctx context.Context, actor Actor, id uint, req *models.UpdateQuestionRequest) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("question", id)
		}
		return nil, NewStoreError("get question", err)
	}
	if !policy.Decide(actor.Role, policy.QuestionEdit, actor.ID, question.CreatedBy) {
		return nil, NewPermissionError("cannot edit a question you do not own")
	}
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Options != nil {
		options, err := encodeOptions(req.Options)
		if err != nil {
			return nil, NewStoreError("encode options", err)
		}
		question.Options = options
	}
	if req.CorrectAnswer != nil {
		question.CorrectAnswer = req.CorrectAnswer
	}
	if req.Explanation != nil {
		question.Explanation = req.Explanation
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Subject != nil {
		question.Subject = *req.Subject
	}
	if req.Tags != nil {
		tags, err := encodeTags(req.Tags)
		if err != nil {
			return nil, NewStoreError("encode tags", err)
		}
		question.Tags = tags
	}

	// The merged state must still be a coherent question.
	opts, decodeErr := question.DecodeOptions()
	if decodeErr != nil {
		return nil, NewValidationError("options are malformed")
	}
	optReqs := make([]models.OptionRequest, len(opts))
	for i, o := range opts {
		optReqs[i] = models.OptionRequest{Text: o.Text, IsCorrect: o.IsCorrect}
	}
	if errs := s.validator.ValidateQuestionContent(question.Type, optReqs, question.CorrectAnswer); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, NewStoreError("update question", err)
	}

	s.logger.InfoContext(ctx, "question updated", "question_id", id, "by", actor.ID)
	return question, nil
}

func (s *questionService) Delete(ctx context.Context, actor Actor, id uint) error {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewNotFoundError("question", id)
		}
		return NewStoreError("get question", err)
	}
	if !policy.Decide(actor.Role, policy.QuestionDelete, actor.ID, question.CreatedBy) {
		return NewPermissionError("cannot delete a question you do not own")
	}

	if err := s.repo.Question().Delete(ctx, id); err != nil {
		return NewStoreError("delete question", err)
	}

	s.logger.InfoContext(ctx, "question deleted", "question_id", id, "by", actor.ID)
	return nil
}

func (s *questionService) List(ctx context.Context, actor Actor, filter repositories.QuestionFilter) ([]models.Question, int64, error) {
	if !policy.Decide(actor.Role, policy.QuestionList, actor.ID, 0) {
		return nil, 0, NewPermissionError("students cannot browse the question bank")
	}
	// Teachers list their own bank regardless of the requested filter.
	if actor.Role == models.RoleTeacher {
		filter.CreatedBy = &actor.ID
	}
	questions, total, err := s.repo.Question().List(ctx, filter)
	if err != nil {
		return nil, 0, NewStoreError("list questions", err)
	}
	return questions, total, nil
}

// encodeOptions assigns stable ids and marshals the option set.
func encodeOptions(reqs []models.OptionRequest) (datatypes.JSON, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	options := make([]models.Option, len(reqs))
	for i, r := range reqs {
		options[i] = models.Option{
			ID:        uuid.NewString(),
			Text:      r.Text,
			IsCorrect: r.IsCorrect,
		}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}
	return data, nil
}

func encodeTags(tags []string) (datatypes.JSON, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return data, nil
}
