// Package memory holds an in-memory Repository used by service tests.
// It mirrors the relational backend's visible behavior, including the
// unique constraints on user email and attempt numbering.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
)

type Repository struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users     map[uint]*models.User
	questions map[uint]*models.Question
	quizzes   map[uint]*models.Quiz
	quizRows  map[uint][]models.QuizQuestion // quizID -> ordered rows
	attempts  map[uint]*models.QuizAttempt

	nextUserID     uint
	nextQuestionID uint
	nextQuizID     uint
	nextRowID      uint
	nextAttemptID  uint
}

func NewRepository() *Repository {
	return &Repository{
		users:     make(map[uint]*models.User),
		questions: make(map[uint]*models.Question),
		quizzes:   make(map[uint]*models.Quiz),
		quizRows:  make(map[uint][]models.QuizQuestion),
		attempts:  make(map[uint]*models.QuizAttempt),
	}
}

func (r *Repository) User() repositories.UserRepository         { return (*userStore)(r) }
func (r *Repository) Question() repositories.QuestionRepository { return (*questionStore)(r) }
func (r *Repository) Quiz() repositories.QuizRepository         { return (*quizStore)(r) }
func (r *Repository) Attempt() repositories.AttemptRepository   { return (*attemptStore)(r) }

// WithTransaction runs fn against the same store, one unit of work at
// a time, matching the row-lock serialization of the relational
// backend. It does not roll back; tests that exercise rollback
// semantics belong on the relational backend.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r)
}

func (r *Repository) Ping(ctx context.Context) error { return nil }
func (r *Repository) Close() error                   { return nil }

// ===== users =====

type userStore Repository

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %q: %w", user.Email, repositories.ErrDuplicate)
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *userStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByIDForUpdate has no lock to take here; the store mutex already
// serializes every operation.
func (s *userStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.User, error) {
	return s.GetByID(ctx, id)
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *userStore) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *userStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *userStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *userStore) List(ctx context.Context, filter repositories.UserFilter) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(u.Name), needle) &&
				!strings.Contains(strings.ToLower(u.Email), needle) {
				continue
			}
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	return page(out, filter.Page, filter.PageSize), total, nil
}

// ===== questions =====

type questionStore Repository

func (s *questionStore) Create(ctx context.Context, question *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuestionID++
	question.ID = s.nextQuestionID
	now := time.Now()
	question.CreatedAt = now
	question.UpdatedAt = now
	cp := *question
	s.questions[question.ID] = &cp
	return nil
}

func (s *questionStore) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *questionStore) GetByIDs(ctx context.Context, ids []uint) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Question
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *questionStore) Update(ctx context.Context, question *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return repositories.ErrNotFound
	}
	question.UpdatedAt = time.Now()
	cp := *question
	s.questions[question.ID] = &cp
	return nil
}

func (s *questionStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.questions, id)
	for quizID, rows := range s.quizRows {
		kept := rows[:0]
		for _, row := range rows {
			if row.QuestionID != id {
				kept = append(kept, row)
			}
		}
		s.quizRows[quizID] = kept
	}
	return nil
}

func (s *questionStore) List(ctx context.Context, filter repositories.QuestionFilter) ([]models.Question, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Question
	for _, q := range s.questions {
		if filter.Type != nil && q.Type != *filter.Type {
			continue
		}
		if filter.Difficulty != nil && q.Difficulty != *filter.Difficulty {
			continue
		}
		if filter.Subject != "" && q.Subject != filter.Subject {
			continue
		}
		if filter.CreatedBy != nil && q.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(q.Text), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	return page(out, filter.Page, filter.PageSize), total, nil
}

func (s *questionStore) AdjustUsage(ctx context.Context, id uint, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	q.UsageCount += delta
	return nil
}

// ===== quizzes =====

type quizStore Repository

func (s *quizStore) Create(ctx context.Context, quiz *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuizID++
	quiz.ID = s.nextQuizID
	now := time.Now()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	cp := *quiz
	cp.Questions = nil
	s.quizzes[quiz.ID] = &cp
	return nil
}

func (s *quizStore) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *q
	rows := s.quizRows[id]
	cp.Questions = make([]models.QuizQuestion, len(rows))
	for i, row := range rows {
		cp.Questions[i] = row
		if question, ok := s.questions[row.QuestionID]; ok {
			cp.Questions[i].Question = *question
		}
	}
	return &cp, nil
}

func (s *quizStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Quiz, error) {
	return s.GetByID(ctx, id)
}

func (s *quizStore) Update(ctx context.Context, quiz *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return repositories.ErrNotFound
	}
	quiz.UpdatedAt = time.Now()
	cp := *quiz
	cp.Questions = nil
	s.quizzes[quiz.ID] = &cp
	return nil
}

func (s *quizStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.quizzes, id)
	delete(s.quizRows, id)
	for attemptID, a := range s.attempts {
		if a.QuizID == id {
			delete(s.attempts, attemptID)
		}
	}
	return nil
}

func (s *quizStore) List(ctx context.Context, filter repositories.QuizFilter) ([]models.Quiz, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Quiz
	for _, q := range s.quizzes {
		if filter.IsPublished != nil && q.IsPublished != *filter.IsPublished {
			continue
		}
		if filter.CreatedBy != nil && q.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(q.Title), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *q
		cp.Questions = nil
		out = append(out, cp)
	}
	// Tie-break on id so page walks stay stable when timestamps collide.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := int64(len(out))
	return page(out, filter.Page, filter.PageSize), total, nil
}

func (s *quizStore) ReplaceQuestions(ctx context.Context, quizID uint, questionIDs []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return repositories.ErrNotFound
	}
	rows := make([]models.QuizQuestion, len(questionIDs))
	for i, qid := range questionIDs {
		s.nextRowID++
		rows[i] = models.QuizQuestion{ID: s.nextRowID, QuizID: quizID, QuestionID: qid, Position: i + 1}
	}
	s.quizRows[quizID] = rows
	return nil
}

// ===== attempts =====

type attemptStore Repository

func (s *attemptStore) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.QuizID == attempt.QuizID && a.StudentID == attempt.StudentID &&
			a.AttemptNumber == attempt.AttemptNumber {
			return fmt.Errorf("duplicate attempt number %d", attempt.AttemptNumber)
		}
	}
	s.nextAttemptID++
	attempt.ID = s.nextAttemptID
	attempt.CreatedAt = time.Now()
	cp := *attempt
	s.attempts[attempt.ID] = &cp
	return nil
}

func (s *attemptStore) GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *attemptStore) CountByQuizAndStudent(ctx context.Context, quizID, studentID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (s *attemptStore) List(ctx context.Context, filter repositories.AttemptFilter) ([]models.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.QuizAttempt
	for _, a := range s.attempts {
		if filter.QuizID != nil && a.QuizID != *filter.QuizID {
			continue
		}
		if filter.StudentID != nil && a.StudentID != *filter.StudentID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *attemptStore) AggregateByQuiz(ctx context.Context, quizID uint) (repositories.AttemptAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregate(func(a *models.QuizAttempt) bool { return a.QuizID == quizID }), nil
}

func (s *attemptStore) AggregateByStudent(ctx context.Context, studentID uint) (repositories.AttemptAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregate(func(a *models.QuizAttempt) bool { return a.StudentID == studentID }), nil
}

func (s *attemptStore) aggregate(match func(*models.QuizAttempt) bool) repositories.AttemptAggregate {
	var agg repositories.AttemptAggregate
	var sum float64
	for _, a := range s.attempts {
		if match(a) {
			agg.Count++
			sum += a.Percentage
		}
	}
	if agg.Count > 0 {
		agg.AveragePercentage = sum / float64(agg.Count)
	}
	return agg
}

func page[T any](items []T, pageNum, pageSize int) []T {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	start := (pageNum - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
