package services

import (
	"math"
	"strings"

	"github.com/openclass/quiz-service/internal/models"
)

// gradeAnswer scores one submitted answer against its question.
// Malformed question data never aborts a submission; it grades as
// incorrect.
func gradeAnswer(question *models.Question, answer string) bool {
	switch question.Type {
	case models.MultipleChoice:
		correct := question.CorrectOption()
		return correct != nil && answer == correct.ID
	case models.TrueFalse:
		correct := question.CorrectOption()
		if correct == nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(answer), correct.Text)
	case models.ShortAnswer:
		if question.CorrectAnswer == nil {
			return false
		}
		return normalizeShortAnswer(answer) == normalizeShortAnswer(*question.CorrectAnswer)
	default:
		return false
	}
}

func normalizeShortAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// percentage computes the rounded score percentage over the quiz's
// full question count; unanswered questions count against it.
func percentage(correct, totalQuestions int) float64 {
	if totalQuestions == 0 {
		return 0
	}
	return math.Round(100 * float64(correct) / float64(totalQuestions))
}
