package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt is one completed submission of answers to a quiz by a
// student. Rows are append-only and never mutated after creation.
type QuizAttempt struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	QuizID    uint `json:"quiz_id" gorm:"not null;index;uniqueIndex:idx_quiz_student_attempt"`
	StudentID uint `json:"student_id" gorm:"not null;index;uniqueIndex:idx_quiz_student_attempt"`

	// AttemptNumber is 1-based and contiguous per (student, quiz);
	// the unique index backstops concurrent submissions.
	AttemptNumber int `json:"attempt_number" gorm:"not null;uniqueIndex:idx_quiz_student_attempt"`

	// Answers holds the ordered []AttemptAnswer records as JSONB.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	Score      int     `json:"score" gorm:"not null"`      // count of correct answers
	Percentage float64 `json:"percentage" gorm:"not null"` // 0-100, rounded
	Passed     bool    `json:"passed" gorm:"not null"`
	TimeSpent  int     `json:"time_spent" gorm:"not null"` // seconds

	StartedAt   time.Time `json:"started_at"`
	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Quiz    Quiz `json:"-" gorm:"foreignKey:QuizID"`
	Student User `json:"-" gorm:"foreignKey:StudentID"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// AttemptAnswer is one graded answer record inside an attempt.
type AttemptAnswer struct {
	QuestionID uint   `json:"question_id"`
	Answer     string `json:"answer"`
	IsCorrect  bool   `json:"is_correct"`
	TimeSpent  int    `json:"time_spent"` // seconds
}

func (a *QuizAttempt) DecodeAnswers() ([]AttemptAnswer, error) {
	if len(a.Answers) == 0 {
		return nil, nil
	}
	var answers []AttemptAnswer
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}
