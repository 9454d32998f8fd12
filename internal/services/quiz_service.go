package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/openclass/quiz-service/internal/events"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/policy"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	publisher events.Publisher
	validator *validator.Validator
	logger    *slog.Logger
}

func NewQuizService(repo repositories.Repository, publisher events.Publisher, v *validator.Validator, logger *slog.Logger) QuizService {
	return &quizService{repo: repo, publisher: publisher, validator: v, logger: logger}
}

func (s *quizService) Create(ctx context.Context, actor Actor, req *models.CreateQuizRequest) (*models.Quiz, error) {
	if !policy.Decide(actor.Role, policy.QuizCreate, actor.ID, 0) {
		return nil, NewPermissionError("students cannot create quizzes")
	}
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	allowed, err := encodeAllowedStudents(req.AllowedStudents)
	if err != nil {
		return nil, NewStoreError("encode allow-list", err)
	}

	quiz := &models.Quiz{
		Title:           req.Title,
		Description:     req.Description,
		TimeLimit:       req.TimeLimit,
		MaxAttempts:     req.MaxAttempts,
		PassingScore:    req.PassingScore,
		AllowedStudents: allowed,
		CreatedBy:       actor.ID,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Quiz().Create(ctx, quiz); err != nil {
			return err
		}
		if len(req.QuestionIDs) > 0 {
			return s.attachQuestions(ctx, tx, quiz.ID, nil, req.QuestionIDs)
		}
		return nil
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, NewStoreError("create quiz", err)
	}

	s.logger.InfoContext(ctx, "quiz created", "quiz_id", quiz.ID, "created_by", actor.ID)
	return s.reload(ctx, quiz.ID)
}

func (s *quizService) GetByID(ctx context.Context, actor Actor, id uint) (*models.Quiz, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent {
		return nil, NewPermissionError("students read quizzes through the student view")
	}
	if !policy.Decide(actor.Role, policy.QuizView, actor.ID, quiz.CreatedBy) {
		return nil, NewPermissionError("cannot view this quiz")
	}
	return quiz, nil
}

// GetForStudent gates on publication and the allow-list, then strips
// everything that would reveal answers.
func (s *quizService) GetForStudent(ctx context.Context, actor Actor, id uint) (*models.StudentQuizView, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	// Unpublished and restricted quizzes are indistinguishable from
	// absent ones for students.
	if !quiz.IsPublished || !quiz.AllowsStudent(actor.ID) {
		return nil, NewNotFoundError("quiz", id)
	}
	return sanitizeQuizForStudent(quiz), nil
}

func (s *quizService) Update(ctx context.Context, actor Actor, id uint, req *models.UpdateQuizRequest) (*models.Quiz, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Decide(actor.Role, policy.QuizEdit, actor.ID, quiz.CreatedBy) {
		return nil, NewPermissionError("cannot edit a quiz you do not own")
	}
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = *req.TimeLimit
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.AllowedStudents != nil {
		allowed, err := encodeAllowedStudents(req.AllowedStudents)
		if err != nil {
			return nil, NewStoreError("encode allow-list", err)
		}
		quiz.AllowedStudents = allowed
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Quiz().Update(ctx, quiz); err != nil {
			return err
		}
		if req.QuestionIDs != nil {
			return s.attachQuestions(ctx, tx, quiz.ID, quiz.QuestionIDs(), req.QuestionIDs)
		}
		return nil
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, NewStoreError("update quiz", err)
	}

	s.logger.InfoContext(ctx, "quiz updated", "quiz_id", id, "by", actor.ID)
	return s.reload(ctx, id)
}

func (s *quizService) Delete(ctx context.Context, actor Actor, id uint) error {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return err
	}
	if !policy.Decide(actor.Role, policy.QuizDelete, actor.ID, quiz.CreatedBy) {
		return NewPermissionError("cannot delete a quiz you do not own")
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		for _, qid := range quiz.QuestionIDs() {
			if err := tx.Question().AdjustUsage(ctx, qid, -1); err != nil {
				return err
			}
		}
		return tx.Quiz().Delete(ctx, id)
	})
	if err != nil {
		return NewStoreError("delete quiz", err)
	}

	s.logger.InfoContext(ctx, "quiz deleted", "quiz_id", id, "by", actor.ID)
	return nil
}

func (s *quizService) Publish(ctx context.Context, actor Actor, id uint) (*models.Quiz, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Decide(actor.Role, policy.QuizPublish, actor.ID, quiz.CreatedBy) {
		return nil, NewPermissionError("cannot publish a quiz you do not own")
	}
	if len(quiz.Questions) == 0 {
		return nil, NewValidationError("cannot publish a quiz with no questions")
	}
	if quiz.IsPublished {
		return quiz, nil
	}

	quiz.IsPublished = true
	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		return nil, NewStoreError("publish quiz", err)
	}

	allowed, _ := quiz.DecodeAllowedStudents()
	s.publishEvent(ctx, events.NewEvent(events.TypeQuizPublished, events.QuizPublishedEvent{
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		CreatedBy:       quiz.CreatedBy,
		AllowedStudents: allowed,
	}))

	s.logger.InfoContext(ctx, "quiz published", "quiz_id", id, "by", actor.ID)
	return quiz, nil
}

func (s *quizService) Unpublish(ctx context.Context, actor Actor, id uint) (*models.Quiz, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Decide(actor.Role, policy.QuizPublish, actor.ID, quiz.CreatedBy) {
		return nil, NewPermissionError("cannot unpublish a quiz you do not own")
	}
	if !quiz.IsPublished {
		return quiz, nil
	}

	quiz.IsPublished = false
	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		return nil, NewStoreError("unpublish quiz", err)
	}

	s.logger.InfoContext(ctx, "quiz unpublished", "quiz_id", id, "by", actor.ID)
	return quiz, nil
}

func (s *quizService) SetQuestions(ctx context.Context, actor Actor, id uint, questionIDs []uint) (*models.Quiz, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Decide(actor.Role, policy.QuizEdit, actor.ID, quiz.CreatedBy) {
		return nil, NewPermissionError("cannot edit a quiz you do not own")
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return s.attachQuestions(ctx, tx, id, quiz.QuestionIDs(), questionIDs)
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, NewStoreError("set quiz questions", err)
	}

	return s.reload(ctx, id)
}

func (s *quizService) List(ctx context.Context, actor Actor, filter repositories.QuizFilter) ([]models.Quiz, int64, error) {
	if !policy.Decide(actor.Role, policy.QuizList, actor.ID, 0) {
		return nil, 0, NewPermissionError("cannot list quizzes")
	}

	if actor.Role == models.RoleStudent {
		return s.listForStudent(ctx, actor, filter)
	}
	// Teachers see their own quizzes.
	if actor.Role == models.RoleTeacher {
		filter.CreatedBy = &actor.ID
	}

	quizzes, total, err := s.repo.Quiz().List(ctx, filter)
	if err != nil {
		return nil, 0, NewStoreError("list quizzes", err)
	}
	return quizzes, total, nil
}

// listForStudent pages over the full published catalog, drops the rows
// the allow-list hides, and paginates the visible set so totals count
// what the student can actually open.
func (s *quizService) listForStudent(ctx context.Context, actor Actor, filter repositories.QuizFilter) ([]models.Quiz, int64, error) {
	published := true
	all, err := listAllQuizzes(ctx, s.repo, repositories.QuizFilter{
		IsPublished: &published,
		Search:      filter.Search,
	})
	if err != nil {
		return nil, 0, NewStoreError("list quizzes", err)
	}

	visible := all[:0]
	for i := range all {
		if all[i].AllowsStudent(actor.ID) {
			all[i].AllowedStudents = nil
			visible = append(visible, all[i])
		}
	}
	return pageQuizzes(visible, filter.Page, filter.PageSize), int64(len(visible)), nil
}

// attachQuestions validates the new set, replaces the rows and keeps
// question usage counters in step. prev is the previous question set.
func (s *quizService) attachQuestions(ctx context.Context, tx repositories.Repository, quizID uint, prev, next []uint) error {
	if len(next) > 0 {
		found, err := tx.Question().GetByIDs(ctx, next)
		if err != nil {
			return err
		}
		if len(found) != len(unique(next)) {
			return NewValidationError("one or more questions do not exist")
		}
	}

	if err := tx.Quiz().ReplaceQuestions(ctx, quizID, unique(next)); err != nil {
		return err
	}

	prevSet := toSet(prev)
	nextSet := toSet(next)
	for qid := range nextSet {
		if !prevSet[qid] {
			if err := tx.Question().AdjustUsage(ctx, qid, 1); err != nil {
				return err
			}
		}
	}
	for qid := range prevSet {
		if !nextSet[qid] {
			if err := tx.Question().AdjustUsage(ctx, qid, -1); err != nil {
				return err
			}
		}
	}
	return nil
}

// listAllQuizzes walks every page the filter matches. Page and PageSize
// on the filter are overwritten.
func listAllQuizzes(ctx context.Context, repo repositories.Repository, filter repositories.QuizFilter) ([]models.Quiz, error) {
	filter.PageSize = 100
	var all []models.Quiz
	for pageNum := 1; ; pageNum++ {
		filter.Page = pageNum
		batch, _, err := repo.Quiz().List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < filter.PageSize {
			return all, nil
		}
	}
}

// ownedQuizSet collects the ids of every quiz the owner created.
func ownedQuizSet(ctx context.Context, repo repositories.Repository, ownerID uint) (map[uint]bool, error) {
	quizzes, err := listAllQuizzes(ctx, repo, repositories.QuizFilter{CreatedBy: &ownerID})
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(quizzes))
	for i := range quizzes {
		set[quizzes[i].ID] = true
	}
	return set, nil
}

// pageQuizzes applies the store's pagination defaults to an in-memory
// slice.
func pageQuizzes(quizzes []models.Quiz, pageNum, pageSize int) []models.Quiz {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	start := (pageNum - 1) * pageSize
	if start >= len(quizzes) {
		return nil
	}
	end := start + pageSize
	if end > len(quizzes) {
		end = len(quizzes)
	}
	return quizzes[start:end]
}

func (s *quizService) getQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("quiz", id)
		}
		return nil, NewStoreError("get quiz", err)
	}
	return quiz, nil
}

func (s *quizService) reload(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		return nil, NewStoreError("reload quiz", err)
	}
	return quiz, nil
}

func (s *quizService) publishEvent(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "event publish failed", "event_type", event.Type, "error", err)
	}
}

// sanitizeQuizForStudent projects a quiz into its student-facing view:
// option correctness, canonical answers and explanations never leave
// the service.
func sanitizeQuizForStudent(quiz *models.Quiz) *models.StudentQuizView {
	view := &models.StudentQuizView{
		ID:           quiz.ID,
		Title:        quiz.Title,
		Description:  quiz.Description,
		TimeLimit:    quiz.TimeLimit,
		MaxAttempts:  quiz.MaxAttempts,
		PassingScore: quiz.PassingScore,
		Questions:    make([]models.StudentQuestionView, 0, len(quiz.Questions)),
	}
	for _, row := range quiz.Questions {
		q := row.Question
		opts, err := q.DecodeOptions()
		if err != nil {
			opts = nil
		}
		public := make([]models.PublicOption, len(opts))
		for i, o := range opts {
			public[i] = models.PublicOption{ID: o.ID, Text: o.Text}
		}
		view.Questions = append(view.Questions, models.StudentQuestionView{
			ID:         q.ID,
			Type:       q.Type,
			Text:       q.Text,
			Options:    public,
			Difficulty: q.Difficulty,
			Subject:    q.Subject,
			Position:   row.Position,
		})
	}
	return view
}

func encodeAllowedStudents(ids []uint) (datatypes.JSON, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return json.Marshal(unique(ids))
}

func unique(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
