// Package validator wraps go-playground struct validation with the
// domain rules requests must satisfy before a service touches storage.
package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/openclass/quiz-service/internal/models"
)

type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	parts := make([]string, len(ve))
	for i, e := range ve {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.registerRules()
	return v
}

// Validate runs struct tag validation and returns the collected
// field errors, nil when the struct is clean.
func (v *Validator) Validate(s interface{}) ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return toValidationErrors(err)
}

func toValidationErrors(err error) ValidationErrors {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "struct"}}
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: messageFor(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "user_role":
		return "must be admin, teacher or student"
	case "question_type":
		return "must be multiple_choice, true_false or short_answer"
	case "difficulty_level":
		return "must be easy, medium or hard"
	case "passing_score":
		return "must be between 0 and 100"
	case "max_attempts":
		return "must be between 1 and 10"
	default:
		return fmt.Sprintf("failed rule %s", fe.Tag())
	}
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})

	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.MultipleChoice, models.TrueFalse, models.ShortAnswer:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		switch models.DifficultyLevel(fl.Field().String()) {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	v.validate.RegisterValidation("max_attempts", func(fl validator.FieldLevel) bool {
		attempts := fl.Field().Int()
		return attempts >= 1 && attempts <= 10
	})
}

// ValidateQuestionContent enforces the per-type shape rules that tags
// cannot express: choice questions need a coherent option set, short
// answers need canonical text.
func (v *Validator) ValidateQuestionContent(qType models.QuestionType, options []models.OptionRequest, correctAnswer *string) ValidationErrors {
	var errs ValidationErrors

	switch qType {
	case models.MultipleChoice:
		if len(options) < 2 {
			errs = append(errs, ValidationError{
				Field: "options", Message: "needs at least 2 options", Rule: "option_set",
			})
		}
		if countCorrect(options) != 1 {
			errs = append(errs, ValidationError{
				Field: "options", Message: "needs exactly 1 correct option", Rule: "option_set",
			})
		}
	case models.TrueFalse:
		if len(options) != 2 {
			errs = append(errs, ValidationError{
				Field: "options", Message: "needs exactly 2 options", Rule: "option_set",
			})
		}
		if countCorrect(options) != 1 {
			errs = append(errs, ValidationError{
				Field: "options", Message: "needs exactly 1 correct option", Rule: "option_set",
			})
		}
	case models.ShortAnswer:
		if correctAnswer == nil || strings.TrimSpace(*correctAnswer) == "" {
			errs = append(errs, ValidationError{
				Field: "correct_answer", Message: "is required for short answer questions", Rule: "option_set",
			})
		}
		if len(options) > 0 {
			errs = append(errs, ValidationError{
				Field: "options", Message: "must be empty for short answer questions", Rule: "option_set",
			})
		}
	}

	return errs
}

func countCorrect(options []models.OptionRequest) int {
	n := 0
	for _, o := range options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}
