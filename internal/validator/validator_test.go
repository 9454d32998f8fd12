package validator

import (
	"testing"

	"github.com/openclass/quiz-service/internal/models"
)

func TestValidateRegisterRequest(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     models.RegisterRequest
		wantErr bool
	}{
		{"valid", models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "longenough"}, false},
		{"missing name", models.RegisterRequest{Email: "ana@example.com", Password: "longenough"}, true},
		{"bad email", models.RegisterRequest{Name: "Ana", Email: "not-an-email", Password: "longenough"}, true},
		{"short password", models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "short"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.req)
			if tt.wantErr && !errs.HasErrors() {
				t.Error("expected validation errors, got none")
			}
			if !tt.wantErr && errs.HasErrors() {
				t.Errorf("unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestCustomRules(t *testing.T) {
	v := New()

	badRole := models.CreateUserRequest{Name: "A", Email: "a@b.com", Password: "longenough", Role: "superuser"}
	if errs := v.Validate(badRole); !errs.HasErrors() {
		t.Error("role superuser should fail user_role")
	}

	goodRole := models.CreateUserRequest{Name: "A", Email: "a@b.com", Password: "longenough", Role: models.RoleTeacher}
	if errs := v.Validate(goodRole); errs.HasErrors() {
		t.Errorf("teacher role should pass: %v", errs)
	}

	badQuiz := models.CreateQuizRequest{Title: "T", TimeLimit: 30, MaxAttempts: 11, PassingScore: 150}
	errs := v.Validate(badQuiz)
	if len(errs) < 2 {
		t.Errorf("expected max_attempts and passing_score failures, got %v", errs)
	}

	badType := models.CreateQuestionRequest{Type: "essay", Text: "?"}
	if errs := v.Validate(badType); !errs.HasErrors() {
		t.Error("type essay should fail question_type")
	}
}

func TestValidateQuestionContent(t *testing.T) {
	v := New()
	answer := "four"
	empty := "   "

	tests := []struct {
		name    string
		qType   models.QuestionType
		options []models.OptionRequest
		correct *string
		wantErr bool
	}{
		{
			"valid multiple choice",
			models.MultipleChoice,
			[]models.OptionRequest{{Text: "3"}, {Text: "4", IsCorrect: true}, {Text: "5"}},
			nil, false,
		},
		{
			"multiple choice with one option",
			models.MultipleChoice,
			[]models.OptionRequest{{Text: "4", IsCorrect: true}},
			nil, true,
		},
		{
			"multiple choice without correct option",
			models.MultipleChoice,
			[]models.OptionRequest{{Text: "3"}, {Text: "4"}},
			nil, true,
		},
		{
			"multiple choice with two correct options",
			models.MultipleChoice,
			[]models.OptionRequest{{Text: "3", IsCorrect: true}, {Text: "4", IsCorrect: true}},
			nil, true,
		},
		{
			"valid true false",
			models.TrueFalse,
			[]models.OptionRequest{{Text: "True", IsCorrect: true}, {Text: "False"}},
			nil, false,
		},
		{
			"true false with three options",
			models.TrueFalse,
			[]models.OptionRequest{{Text: "True", IsCorrect: true}, {Text: "False"}, {Text: "Maybe"}},
			nil, true,
		},
		{"valid short answer", models.ShortAnswer, nil, &answer, false},
		{"short answer without canonical text", models.ShortAnswer, nil, nil, true},
		{"short answer with blank canonical text", models.ShortAnswer, nil, &empty, true},
		{
			"short answer with options",
			models.ShortAnswer,
			[]models.OptionRequest{{Text: "4", IsCorrect: true}},
			&answer, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateQuestionContent(tt.qType, tt.options, tt.correct)
			if tt.wantErr && !errs.HasErrors() {
				t.Error("expected errors, got none")
			}
			if !tt.wantErr && errs.HasErrors() {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}
