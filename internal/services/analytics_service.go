package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/policy"
	"github.com/openclass/quiz-service/internal/repositories"
)

const (
	recentQuizzes  = 5
	recentAttempts = 10
)

// Dashboard is the role-scoped landing summary. Only the fields for
// the caller's role are populated.
type Dashboard struct {
	Role models.UserRole `json:"role"`

	// Admin
	TotalUsers    int64 `json:"total_users,omitempty"`
	TotalTeachers int64 `json:"total_teachers,omitempty"`
	TotalStudents int64 `json:"total_students,omitempty"`

	// Admin and teacher
	TotalQuizzes  int64 `json:"total_quizzes,omitempty"`
	TotalAttempts int   `json:"total_attempts,omitempty"`

	// Student
	QuizzesTaken int     `json:"quizzes_taken,omitempty"`
	AverageScore float64 `json:"average_score,omitempty"`
	PassedCount  int     `json:"passed_count,omitempty"`

	RecentQuizzes  []models.Quiz        `json:"recent_quizzes,omitempty"`
	RecentAttempts []models.QuizAttempt `json:"recent_attempts,omitempty"`
}

// StudentPerformance summarizes one student's attempt history.
type StudentPerformance struct {
	StudentID     uint                 `json:"student_id"`
	StudentName   string               `json:"student_name"`
	TotalAttempts int                  `json:"total_attempts"`
	AverageScore  float64              `json:"average_score"`
	BestScore     float64              `json:"best_score"`
	PassedCount   int                  `json:"passed_count"`
	PassRate      float64              `json:"pass_rate"`
	Recent        []models.QuizAttempt `json:"recent_attempts"`
}

// QuestionStats is the per-question breakdown inside quiz stats.
type QuestionStats struct {
	QuestionID  uint    `json:"question_id"`
	Text        string  `json:"text"`
	Answered    int     `json:"answered"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correct_rate"`
	AverageTime float64 `json:"average_time"`
}

// QuizStats is the teacher-facing rollup for one quiz.
type QuizStats struct {
	QuizID        uint    `json:"quiz_id"`
	Title         string  `json:"title"`
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
	PassRate      float64 `json:"pass_rate"`
	// ScoreHistogram partitions percentages into five fixed buckets:
	// 0-20, 21-40, 41-60, 61-80, 81-100.
	ScoreHistogram [5]int          `json:"score_histogram"`
	Questions      []QuestionStats `json:"questions"`
}

type analyticsService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewAnalyticsService(repo repositories.Repository, logger *slog.Logger) AnalyticsService {
	return &analyticsService{repo: repo, logger: logger}
}

func (s *analyticsService) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	if !policy.Decide(actor.Role, policy.AnalyticsDashboard, actor.ID, 0) {
		return nil, NewPermissionError("no dashboard for this role")
	}

	switch actor.Role {
	case models.RoleAdmin:
		return s.adminDashboard(ctx)
	case models.RoleTeacher:
		return s.teacherDashboard(ctx, actor.ID)
	default:
		return s.studentDashboard(ctx, actor.ID)
	}
}

func (s *analyticsService) adminDashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{Role: models.RoleAdmin}

	_, total, err := s.repo.User().List(ctx, repositories.UserFilter{PageSize: 1})
	if err != nil {
		return nil, NewStoreError("count users", err)
	}
	d.TotalUsers = total

	teacher := models.RoleTeacher
	if _, n, err := s.repo.User().List(ctx, repositories.UserFilter{Role: &teacher, PageSize: 1}); err == nil {
		d.TotalTeachers = n
	}
	student := models.RoleStudent
	if _, n, err := s.repo.User().List(ctx, repositories.UserFilter{Role: &student, PageSize: 1}); err == nil {
		d.TotalStudents = n
	}

	quizzes, totalQuizzes, err := s.repo.Quiz().List(ctx, repositories.QuizFilter{PageSize: recentQuizzes})
	if err != nil {
		return nil, NewStoreError("list quizzes", err)
	}
	d.TotalQuizzes = totalQuizzes
	d.RecentQuizzes = quizzes

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilter{Limit: recentAttempts})
	if err != nil {
		return nil, NewStoreError("list attempts", err)
	}
	d.RecentAttempts = attempts
	return d, nil
}

func (s *analyticsService) teacherDashboard(ctx context.Context, teacherID uint) (*Dashboard, error) {
	d := &Dashboard{Role: models.RoleTeacher}

	quizzes, totalQuizzes, err := s.repo.Quiz().List(ctx, repositories.QuizFilter{
		CreatedBy: &teacherID,
		PageSize:  recentQuizzes,
	})
	if err != nil {
		return nil, NewStoreError("list quizzes", err)
	}
	d.TotalQuizzes = totalQuizzes
	d.RecentQuizzes = quizzes

	// Attempt totals and recents cover the teacher's quizzes only.
	allOwn, err := listAllQuizzes(ctx, s.repo, repositories.QuizFilter{CreatedBy: &teacherID})
	if err != nil {
		return nil, NewStoreError("list quizzes", err)
	}
	for i := range allOwn {
		d.TotalAttempts += allOwn[i].TotalAttempts
	}
	for i := range allOwn {
		if len(d.RecentAttempts) >= recentAttempts {
			break
		}
		attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilter{
			QuizID: &allOwn[i].ID,
			Limit:  recentAttempts - len(d.RecentAttempts),
		})
		if err != nil {
			return nil, NewStoreError("list attempts", err)
		}
		d.RecentAttempts = append(d.RecentAttempts, attempts...)
	}
	return d, nil
}

func (s *analyticsService) studentDashboard(ctx context.Context, studentID uint) (*Dashboard, error) {
	d := &Dashboard{Role: models.RoleStudent}

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilter{StudentID: &studentID})
	if err != nil {
		return nil, NewStoreError("list attempts", err)
	}

	var sum float64
	for i := range attempts {
		sum += attempts[i].Percentage
		if attempts[i].Passed {
			d.PassedCount++
		}
	}
	d.QuizzesTaken = len(attempts)
	if len(attempts) > 0 {
		d.AverageScore = sum / float64(len(attempts))
	}
	if len(attempts) > recentAttempts {
		attempts = attempts[:recentAttempts]
	}
	d.RecentAttempts = attempts

	published := true
	quizzes, _, err := s.repo.Quiz().List(ctx, repositories.QuizFilter{
		IsPublished: &published,
		PageSize:    recentQuizzes,
	})
	if err != nil {
		return nil, NewStoreError("list quizzes", err)
	}
	visible := quizzes[:0]
	for i := range quizzes {
		if quizzes[i].AllowsStudent(studentID) {
			quizzes[i].AllowedStudents = nil
			visible = append(visible, quizzes[i])
		}
	}
	d.RecentQuizzes = visible
	return d, nil
}

func (s *analyticsService) StudentPerformance(ctx context.Context, actor Actor, studentID uint) (*StudentPerformance, error) {
	unrestricted := policy.Decide(actor.Role, policy.AnalyticsStudent, actor.ID, studentID)
	if !unrestricted && actor.Role != models.RoleTeacher {
		return nil, NewPermissionError("cannot view this student's performance")
	}

	student, err := s.repo.User().GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("user", studentID)
		}
		return nil, NewStoreError("get user", err)
	}

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilter{StudentID: &studentID})
	if err != nil {
		return nil, NewStoreError("list attempts", err)
	}

	// Teachers see the student through their own quizzes only.
	if !unrestricted {
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

	perf := &StudentPerformance{
		StudentID:     studentID,
		StudentName:   student.Name,
		TotalAttempts: len(attempts),
	}
	var sum float64
	for i := range attempts {
		sum += attempts[i].Percentage
		if attempts[i].Percentage > perf.BestScore {
			perf.BestScore = attempts[i].Percentage
		}
		if attempts[i].Passed {
			perf.PassedCount++
		}
	}
	// A student with no attempts reports zeroes, not NaN.
	if len(attempts) > 0 {
		perf.AverageScore = sum / float64(len(attempts))
		perf.PassRate = 100 * float64(perf.PassedCount) / float64(len(attempts))
	}
	recent := attempts
	if len(recent) > recentAttempts {
		recent = recent[:recentAttempts]
	}
	perf.Recent = recent
	return perf, nil
}

func (s *analyticsService) QuizStats(ctx context.Context, actor Actor, quizID uint) (*QuizStats, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("quiz", quizID)
		}
		return nil, NewStoreError("get quiz", err)
	}
	if !policy.Decide(actor.Role, policy.AnalyticsQuiz, actor.ID, quiz.CreatedBy) {
		return nil, NewPermissionError("cannot view stats for this quiz")
	}

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilter{QuizID: &quizID})
	if err != nil {
		return nil, NewStoreError("list attempts", err)
	}

	stats := &QuizStats{
		QuizID:        quizID,
		Title:         quiz.Title,
		TotalAttempts: len(attempts),
	}

	type tally struct{ answered, correct, timeSpent int }
	perQuestion := make(map[uint]*tally, len(quiz.Questions))
	for _, row := range quiz.Questions {
		perQuestion[row.QuestionID] = &tally{}
	}

	var sum float64
	passed := 0
	for i := range attempts {
		sum += attempts[i].Percentage
		if attempts[i].Passed {
			passed++
		}
		stats.ScoreHistogram[histogramBucket(attempts[i].Percentage)]++

		answers, err := attempts[i].DecodeAnswers()
		if err != nil {
			continue
		}
		for _, a := range answers {
			t, ok := perQuestion[a.QuestionID]
			if !ok {
				continue
			}
			t.answered++
			t.timeSpent += a.TimeSpent
			if a.IsCorrect {
				t.correct++
			}
		}
	}
	if len(attempts) > 0 {
		stats.AverageScore = sum / float64(len(attempts))
		stats.PassRate = 100 * float64(passed) / float64(len(attempts))
	}

	for _, row := range quiz.Questions {
		t := perQuestion[row.QuestionID]
		qs := QuestionStats{
			QuestionID: row.QuestionID,
			Text:       row.Question.Text,
			Answered:   t.answered,
			Correct:    t.correct,
		}
		if t.answered > 0 {
			qs.CorrectRate = 100 * float64(t.correct) / float64(t.answered)
			qs.AverageTime = float64(t.timeSpent) / float64(t.answered)
		}
		stats.Questions = append(stats.Questions, qs)
	}
	return stats, nil
}

// histogramBucket places a percentage into one of five fixed ranges:
// [0,21) [21,41) [41,61) [61,81) [81,100].
func histogramBucket(pct float64) int {
	switch {
	case pct < 21:
		return 0
	case pct < 41:
		return 1
	case pct < 61:
		return 2
	case pct < 81:
		return 3
	default:
		return 4
	}
}

// ExportQuizResults renders the quiz's attempt sheet as an xlsx
// workbook for offline grading reviews.
func (s *analyticsService) ExportQuizResults(ctx context.Context, actor Actor, quizID uint) ([]byte, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("quiz", quizID)
		}
		return nil, NewStoreError("get quiz", err)
	}
	if !policy.Decide(actor.Role, policy.AnalyticsExport, actor.ID, quiz.CreatedBy) {
		return nil, NewPermissionError("cannot export results for this quiz")
	}

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilter{QuizID: &quizID})
	if err != nil {
		return nil, NewStoreError("list attempts", err)
	}

	names := make(map[uint]string)
	for i := range attempts {
		if _, ok := names[attempts[i].StudentID]; ok {
			continue
		}
		student, err := s.repo.User().GetByID(ctx, attempts[i].StudentID)
		if err != nil {
			names[attempts[i].StudentID] = fmt.Sprintf("user %d", attempts[i].StudentID)
			continue
		}
		names[attempts[i].StudentID] = student.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student", "Attempt", "Score", "Percentage", "Passed", "Time Spent (s)", "Submitted At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, a := range attempts {
		values := []interface{}{
			names[a.StudentID],
			a.AttemptNumber,
			a.Score,
			a.Percentage,
			a.Passed,
			a.TimeSpent,
			a.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, NewStoreError("write workbook", err)
	}

	s.logger.InfoContext(ctx, "quiz results exported", "quiz_id", quizID, "rows", len(attempts), "by", actor.ID)
	return buf.Bytes(), nil
}
