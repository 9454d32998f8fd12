package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quiz struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index"`
	Description *string `json:"description,omitempty" gorm:"type:text"`

	TimeLimit    int  `json:"time_limit" gorm:"not null;default:30"` // minutes
	MaxAttempts  int  `json:"max_attempts" gorm:"not null;default:1"`
	PassingScore int  `json:"passing_score" gorm:"not null;default:60"` // percentage threshold
	IsPublished  bool `json:"is_published" gorm:"not null;default:false;index"`

	// AllowedStudents is a JSONB []uint allow-list; empty means the
	// published quiz is visible to every student.
	AllowedStudents datatypes.JSON `json:"allowed_students" gorm:"type:jsonb"`

	// Rolling aggregates, mutated only by the scoring engine.
	TotalAttempts int     `json:"total_attempts" gorm:"not null;default:0"`
	AverageScore  float64 `json:"average_score" gorm:"not null;default:0"`

	CreatedBy uint           `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []QuizQuestion `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	Creator   User           `json:"-" gorm:"foreignKey:CreatedBy"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion is the ordered quiz/question join row.
type QuizQuestion struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	QuizID     uint `json:"quiz_id" gorm:"not null;index;uniqueIndex:idx_quiz_question"`
	QuestionID uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_quiz_question"`
	Position   int  `json:"position" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`

	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// DecodeAllowedStudents unmarshals the allow-list. A nil column decodes
// to an empty slice, which means public.
func (q *Quiz) DecodeAllowedStudents() ([]uint, error) {
	if len(q.AllowedStudents) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal(q.AllowedStudents, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AllowsStudent reports whether the allow-list admits the student.
// An empty or malformed allow-list counts as public.
func (q *Quiz) AllowsStudent(studentID uint) bool {
	ids, err := q.DecodeAllowedStudents()
	if err != nil || len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == studentID {
			return true
		}
	}
	return false
}

// QuestionIDs returns the quiz's question ids in position order.
func (q *Quiz) QuestionIDs() []uint {
	ids := make([]uint, len(q.Questions))
	for i, qq := range q.Questions {
		ids[i] = qq.QuestionID
	}
	return ids
}
