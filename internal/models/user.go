package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	Name         string   `json:"name" gorm:"not null;size:100"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Role         UserRole `json:"role" gorm:"not null;default:student;index;size:20"`
	IsActive     bool     `json:"is_active" gorm:"not null;default:true"`

	// Rolling aggregates, mutated only by the scoring engine.
	// AverageScore is the mean attempt percentage across all of this
	// user's attempts, recomputed from the full attempt set.
	TotalQuizzesTaken int     `json:"total_quizzes_taken" gorm:"not null;default:0"`
	AverageScore      float64 `json:"average_score" gorm:"not null;default:0"`

	// Password reset, token delivered out of band.
	ResetToken        *string    `json:"-" gorm:"size:255;index"`
	ResetTokenExpires *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
