package services

import (
	"context"
	"sync"
	"testing"

	"github.com/openclass/quiz-service/internal/events"
	"github.com/openclass/quiz-service/internal/models"
)

func TestSubmitGradesPerQuestionType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.seedUser(t, "teacher", models.RoleTeacher)

	mc := env.seedChoiceQuestion(t, teacher.ID)
	tf := env.seedTrueFalseQuestion(t, teacher.ID)
	sa := env.seedShortAnswerQuestion(t, teacher.ID, "Paris")
	quiz := env.seedQuiz(t, teacher.ID, true, 3, mc.ID, tf.ID, sa.ID)

	tests := []struct {
		name        string
		answers     []models.SubmitAnswerRequest
		wantScore   int
		wantPercent float64
		wantPassed  bool
	}{
		{
			"all correct",
			[]models.SubmitAnswerRequest{
				{QuestionID: mc.ID, Answer: "b"},
				{QuestionID: tf.ID, Answer: "true"},
				{QuestionID: sa.ID, Answer: "  PARIS "},
			},
			3, 100, true,
		},
		{
			"choice answered by text not id",
			[]models.SubmitAnswerRequest{
				{QuestionID: mc.ID, Answer: "4"},
				{QuestionID: tf.ID, Answer: "True"},
				{QuestionID: sa.ID, Answer: "paris"},
			},
			2, 67, true,
		},
		{
			"unanswered questions count as wrong",
			[]models.SubmitAnswerRequest{
				{QuestionID: mc.ID, Answer: "b"},
			},
			1, 33, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := env.seedUser(t, "s-"+tt.name, models.RoleStudent)
			result, err := env.manager.Attempts().Submit(ctx, env.actorFor(s), quiz.ID, &models.SubmitAttemptRequest{
				Answers:   tt.answers,
				TimeSpent: 120,
			})
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			if result.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", result.Score, tt.wantScore)
			}
			if result.Percentage != tt.wantPercent {
				t.Errorf("Percentage = %v, want %v", result.Percentage, tt.wantPercent)
			}
			if result.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v", result.Passed, tt.wantPassed)
			}
			if result.TotalQuestions != 3 {
				t.Errorf("TotalQuestions = %d, want 3", result.TotalQuestions)
			}
		})
	}
}

func TestSubmitMalformedQuestionGradesIncorrect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.seedUser(t, "teacher", models.RoleTeacher)
	student := env.seedUser(t, "student", models.RoleStudent)

	// Option set with no correct flag and broken JSON both grade as
	// incorrect without failing the submission.
	noCorrect := &models.Question{
		Type:      models.MultipleChoice,
		Text:      "broken",
		Options:   mustOptions(t, []models.Option{{ID: "a", Text: "x"}, {ID: "b", Text: "y"}}),
		CreatedBy: teacher.ID,
	}
	if err := env.repo.Question().Create(ctx, noCorrect); err != nil {
		t.Fatal(err)
	}
	badJSON := &models.Question{
		Type:      models.TrueFalse,
		Text:      "also broken",
		Options:   []byte(`{"not":"an array"`),
		CreatedBy: teacher.ID,
	}
	if err := env.repo.Question().Create(ctx, badJSON); err != nil {
		t.Fatal(err)
	}

	quiz := env.seedQuiz(t, teacher.ID, true, 1, noCorrect.ID, badJSON.ID)

	result, err := env.manager.Attempts().Submit(ctx, env.actorFor(student), quiz.ID, &models.SubmitAttemptRequest{
		Answers: []models.SubmitAnswerRequest{
			{QuestionID: noCorrect.ID, Answer: "a"},
			{QuestionID: badJSON.ID, Answer: "true"},
		},
	})
	if err != nil {
		t.Fatalf("Submit should tolerate malformed question data: %v", err)
	}
	if result.Score != 0 || result.Percentage != 0 {
		t.Errorf("malformed questions should grade incorrect, got score=%d pct=%v", result.Score, result.Percentage)
	}
}

func TestSubmitPreconditionOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.seedUser(t, "teacher", models.RoleTeacher)
	student := env.seedUser(t, "student", models.RoleStudent)
	actor := env.actorFor(student)

	mc := env.seedChoiceQuestion(t, teacher.ID)
	answers := &models.SubmitAttemptRequest{
		Answers: []models.SubmitAnswerRequest{{QuestionID: mc.ID, Answer: "b"}},
	}

	t.Run("missing quiz is NotFound", func(t *testing.T) {
		_, err := env.manager.Attempts().Submit(ctx, actor, 999, answers)
		if !IsKind(err, KindNotFound) {
			t.Errorf("err = %v, want NotFound", err)
		}
	})

	t.Run("unpublished quiz is NotFound", func(t *testing.T) {
		draft := env.seedQuiz(t, teacher.ID, false, 3, mc.ID)
		_, err := env.manager.Attempts().Submit(ctx, actor, draft.ID, answers)
		if !IsKind(err, KindNotFound) {
			t.Errorf("err = %v, want NotFound", err)
		}
	})

	t.Run("restricted quiz is NotFound for outsiders", func(t *testing.T) {
		restricted := env.seedQuiz(t, teacher.ID, true, 3, mc.ID)
		restricted.AllowedStudents = []byte(`[99999]`)
		if err := env.repo.Quiz().Update(ctx, restricted); err != nil {
			t.Fatal(err)
		}
		_, err := env.manager.Attempts().Submit(ctx, actor, restricted.ID, answers)
		if !IsKind(err, KindNotFound) {
			t.Errorf("err = %v, want NotFound", err)
		}
	})

	t.Run("attempt limit beats invalid answers", func(t *testing.T) {
		quiz := env.seedQuiz(t, teacher.ID, true, 1, mc.ID)
		if _, err := env.manager.Attempts().Submit(ctx, actor, quiz.ID, answers); err != nil {
			t.Fatalf("first submit failed: %v", err)
		}
		// Second submission is both over the limit and malformed; the
		// limit check comes first.
		_, err := env.manager.Attempts().Submit(ctx, actor, quiz.ID, &models.SubmitAttemptRequest{
			Answers: []models.SubmitAnswerRequest{{QuestionID: 999, Answer: "x"}},
		})
		if !IsKind(err, KindAttemptLimitExceeded) {
			t.Errorf("err = %v, want AttemptLimitExceeded", err)
		}
	})

	t.Run("foreign question is InvalidAnswer", func(t *testing.T) {
		quiz := env.seedQuiz(t, teacher.ID, true, 3, mc.ID)
		other := env.seedShortAnswerQuestion(t, teacher.ID, "x")
		_, err := env.manager.Attempts().Submit(ctx, actor, quiz.ID, &models.SubmitAttemptRequest{
			Answers: []models.SubmitAnswerRequest{{QuestionID: other.ID, Answer: "x"}},
		})
		if !IsKind(err, KindInvalidAnswer) {
			t.Errorf("err = %v, want InvalidAnswer", err)
		}
	})

	t.Run("duplicate answer is InvalidAnswer", func(t *testing.T) {
		quiz := env.seedQuiz(t, teacher.ID, true, 3, mc.ID)
		_, err := env.manager.Attempts().Submit(ctx, actor, quiz.ID, &models.SubmitAttemptRequest{
			Answers: []models.SubmitAnswerRequest{
				{QuestionID: mc.ID, Answer: "a"},
				{QuestionID: mc.ID, Answer: "b"},
			},
		})
		if !IsKind(err, KindInvalidAnswer) {
			t.Errorf("err = %v, want InvalidAnswer", err)
		}
	})

	t.Run("teacher cannot submit", func(t *testing.T) {
		quiz := env.seedQuiz(t, teacher.ID, true, 3, mc.ID)
		_, err := env.manager.Attempts().Submit(ctx, env.actorFor(teacher), quiz.ID, answers)
		if !IsKind(err, KindPermissionDenied) {
			t.Errorf("err = %v, want PermissionDenied", err)
		}
	})
}

func TestSubmitNumbersAttemptsAndUpdatesAggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.seedUser(t, "teacher", models.RoleTeacher)
	student := env.seedUser(t, "student", models.RoleStudent)
	actor := env.actorFor(student)

	mc := env.seedChoiceQuestion(t, teacher.ID)
	sa := env.seedShortAnswerQuestion(t, teacher.ID, "Paris")
	quiz := env.seedQuiz(t, teacher.ID, true, 3, mc.ID, sa.ID)

	// First attempt: 100%. Second attempt: 50%.
	first, err := env.manager.Attempts().Submit(ctx, actor, quiz.ID, &models.SubmitAttemptRequest{
		Answers: []models.SubmitAnswerRequest{
			{QuestionID: mc.ID, Answer: "b"},
			{QuestionID: sa.ID, Answer: "paris"},
		},
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := env.manager.Attempts().Submit(ctx, actor, quiz.ID, &models.SubmitAttemptRequest{
		Answers: []models.SubmitAnswerRequest{
			{QuestionID: mc.ID, Answer: "b"},
		},
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if first.AttemptNumber != 1 || second.AttemptNumber != 2 {
		t.Errorf("attempt numbers = %d, %d; want 1, 2", first.AttemptNumber, second.AttemptNumber)
	}

	reloaded, err := env.repo.Quiz().GetByID(ctx, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.TotalAttempts != 2 {
		t.Errorf("quiz TotalAttempts = %d, want 2", reloaded.TotalAttempts)
	}
	if reloaded.AverageScore != 75 {
		t.Errorf("quiz AverageScore = %v, want 75", reloaded.AverageScore)
	}

	updatedStudent, err := env.repo.User().GetByID(ctx, student.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updatedStudent.TotalQuizzesTaken != 2 {
		t.Errorf("student TotalQuizzesTaken = %d, want 2", updatedStudent.TotalQuizzesTaken)
	}
	if updatedStudent.AverageScore != 75 {
		t.Errorf("student AverageScore = %v, want 75", updatedStudent.AverageScore)
	}

	published := env.publisher.EventsOfType(events.TypeAttemptSubmitted)
	if len(published) != 2 {
		t.Errorf("published %d attempt events, want 2", len(published))
	}
}

func TestAttemptViewScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.seedUser(t, "teacher", models.RoleTeacher)
	rival := env.seedUser(t, "rival", models.RoleTeacher)
	admin := env.seedUser(t, "admin", models.RoleAdmin)
	alice := env.seedUser(t, "alice", models.RoleStudent)
	bob := env.seedUser(t, "bob", models.RoleStudent)

	mc := env.seedChoiceQuestion(t, teacher.ID)
	quiz := env.seedQuiz(t, teacher.ID, true, 3, mc.ID)

	result, err := env.manager.Attempts().Submit(ctx, env.actorFor(alice), quiz.ID, &models.SubmitAttemptRequest{
		Answers: []models.SubmitAnswerRequest{{QuestionID: mc.ID, Answer: "b"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.manager.Attempts().GetByID(ctx, env.actorFor(alice), result.AttemptID); err != nil {
		t.Errorf("owner should read own attempt: %v", err)
	}
	if _, err := env.manager.Attempts().GetByID(ctx, env.actorFor(bob), result.AttemptID); !IsKind(err, KindPermissionDenied) {
		t.Errorf("other student read = %v, want PermissionDenied", err)
	}
	if _, err := env.manager.Attempts().GetByID(ctx, env.actorFor(teacher), result.AttemptID); err != nil {
		t.Errorf("quiz owner should read attempts on own quiz: %v", err)
	}
	// A teacher with no quiz in the picture gets nothing.
	if _, err := env.manager.Attempts().GetByID(ctx, env.actorFor(rival), result.AttemptID); !IsKind(err, KindPermissionDenied) {
		t.Errorf("rival teacher read = %v, want PermissionDenied", err)
	}
	if _, err := env.manager.Attempts().GetByID(ctx, env.actorFor(admin), result.AttemptID); err != nil {
		t.Errorf("admin should read any attempt: %v", err)
	}

	// Listing a student narrows to attempts on the caller's quizzes.
	attempts, err := env.manager.Attempts().ListForStudent(ctx, env.actorFor(teacher), alice.ID, 0)
	if err != nil {
		t.Fatalf("teacher list failed: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("teacher sees %d attempts, want 1", len(attempts))
	}
	attempts, err = env.manager.Attempts().ListForStudent(ctx, env.actorFor(rival), alice.ID, 0)
	if err != nil {
		t.Fatalf("rival list failed: %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("rival sees %d attempts, want 0", len(attempts))
	}
	if _, err := env.manager.Attempts().ListForStudent(ctx, env.actorFor(bob), alice.ID, 0); !IsKind(err, KindPermissionDenied) {
		t.Errorf("cross-student list = %v, want PermissionDenied", err)
	}
}

func TestSubmitAttemptLimitUnderContention(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.seedUser(t, "teacher", models.RoleTeacher)
	student := env.seedUser(t, "student", models.RoleStudent)
	actor := env.actorFor(student)

	mc := env.seedChoiceQuestion(t, teacher.ID)
	quiz := env.seedQuiz(t, teacher.ID, true, 1, mc.ID)

	// Two racing submissions against a one-attempt quiz: exactly one
	// lands, the other is turned away at the limit, never as a store
	// failure.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.manager.Attempts().Submit(ctx, actor, quiz.ID, &models.SubmitAttemptRequest{
				Answers: []models.SubmitAnswerRequest{{QuestionID: mc.ID, Answer: "b"}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, limited := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case IsKind(err, KindAttemptLimitExceeded):
			limited++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || limited != 1 {
		t.Errorf("succeeded=%d limited=%d, want 1 and 1", succeeded, limited)
	}

	reloaded, err := env.repo.Quiz().GetByID(ctx, quiz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.TotalAttempts != 1 {
		t.Errorf("quiz TotalAttempts = %d, want 1", reloaded.TotalAttempts)
	}
}
