package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Option is one selectable answer of a choice-type question. Options
// are stored as a JSONB array on the question row.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// PublicOption is the student-facing projection of an Option. The
// correctness flag is stripped at the read boundary, never in storage.
type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID   uint         `json:"id" gorm:"primaryKey"`
	Type QuestionType `json:"type" gorm:"not null;index;size:30"`
	Text string       `json:"text" gorm:"type:text;not null"`

	// Options holds []Option for choice-type questions, empty for
	// short-answer. CorrectAnswer is the canonical short-answer text.
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectAnswer *string        `json:"correct_answer,omitempty" gorm:"size:500"`
	Explanation   *string        `json:"explanation,omitempty" gorm:"type:text"`

	Difficulty DifficultyLevel `json:"difficulty" gorm:"default:medium;index;size:10"`
	Subject    string          `json:"subject" gorm:"size:100;index"`
	Tags       datatypes.JSON  `json:"tags" gorm:"type:jsonb"` // []string

	// UsageCount tracks how many quizzes reference this question.
	UsageCount int `json:"usage_count" gorm:"not null;default:0"`

	CreatedBy uint      `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Creator User `json:"-" gorm:"foreignKey:CreatedBy"`
}

func (Question) TableName() string {
	return "questions"
}

// DecodeOptions unmarshals the stored option set. A nil column decodes
// to an empty slice.
func (q *Question) DecodeOptions() ([]Option, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var opts []Option
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// CorrectOption returns the first option flagged correct, or nil when
// the option set carries none (malformed data grades as incorrect).
func (q *Question) CorrectOption() *Option {
	opts, err := q.DecodeOptions()
	if err != nil {
		return nil
	}
	for i := range opts {
		if opts[i].IsCorrect {
			return &opts[i]
		}
	}
	return nil
}
