package models

import "time"

// ===== IDENTITY DTOs =====

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// CreateUserRequest is the admin-only variant that may set a role.
type CreateUserRequest struct {
	Name     string   `json:"name" validate:"required,min=1,max=100"`
	Email    string   `json:"email" validate:"required,email,max=255"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Role     UserRole `json:"role" validate:"required,user_role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type UpdateProfileRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=100"`
}

// ===== CONTENT DTOs =====

type OptionRequest struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

type CreateQuestionRequest struct {
	Type          QuestionType    `json:"type" validate:"required,question_type"`
	Text          string          `json:"text" validate:"required,max=2000"`
	Options       []OptionRequest `json:"options" validate:"omitempty,max=10,dive"`
	CorrectAnswer *string         `json:"correct_answer" validate:"omitempty,max=500"`
	Explanation   *string         `json:"explanation" validate:"omitempty,max=1000"`
	Difficulty    DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Subject       string          `json:"subject" validate:"omitempty,max=100"`
	Tags          []string        `json:"tags" validate:"omitempty,max=10,dive,max=50"`
}

type UpdateQuestionRequest struct {
	Text          *string          `json:"text" validate:"omitempty,min=1,max=2000"`
	Options       []OptionRequest  `json:"options" validate:"omitempty,max=10,dive"`
	CorrectAnswer *string          `json:"correct_answer" validate:"omitempty,max=500"`
	Explanation   *string          `json:"explanation" validate:"omitempty,max=1000"`
	Difficulty    *DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Subject       *string          `json:"subject" validate:"omitempty,max=100"`
	Tags          []string         `json:"tags" validate:"omitempty,max=10,dive,max=50"`
}

type CreateQuizRequest struct {
	Title           string  `json:"title" validate:"required,min=1,max=200"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	QuestionIDs     []uint  `json:"question_ids" validate:"omitempty,max=100"`
	TimeLimit       int     `json:"time_limit" validate:"required,min=1,max=300"`
	MaxAttempts     int     `json:"max_attempts" validate:"required,max_attempts"`
	PassingScore    int     `json:"passing_score" validate:"passing_score"`
	AllowedStudents []uint  `json:"allowed_students"`
}

type UpdateQuizRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	QuestionIDs     []uint  `json:"question_ids" validate:"omitempty,max=100"`
	TimeLimit       *int    `json:"time_limit" validate:"omitempty,min=1,max=300"`
	MaxAttempts     *int    `json:"max_attempts" validate:"omitempty,max_attempts"`
	PassingScore    *int    `json:"passing_score" validate:"omitempty,passing_score"`
	AllowedStudents []uint  `json:"allowed_students"`
}

// ===== SUBMISSION DTOs =====

type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
	TimeSpent  int    `json:"time_spent" validate:"min=0"`
}

type SubmitAttemptRequest struct {
	Answers   []SubmitAnswerRequest `json:"answers" validate:"required,dive"`
	TimeSpent int                   `json:"time_spent" validate:"min=0"`
}

// AttemptResult is the submission outcome returned to the student.
// It deliberately omits the per-question correctness map.
type AttemptResult struct {
	AttemptID      uint      `json:"attempt_id"`
	QuizID         uint      `json:"quiz_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Percentage     float64   `json:"percentage"`
	Passed         bool      `json:"passed"`
	TimeSpent      int       `json:"time_spent"`
	AttemptNumber  int       `json:"attempt_number"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// ===== READ-SIDE PROJECTIONS =====

// StudentQuestionView is a question as a student may see it inside a
// quiz: no correctness flags, no canonical answer, no explanation.
type StudentQuestionView struct {
	ID         uint            `json:"id"`
	Type       QuestionType    `json:"type"`
	Text       string          `json:"text"`
	Options    []PublicOption  `json:"options"`
	Difficulty DifficultyLevel `json:"difficulty"`
	Subject    string          `json:"subject"`
	Position   int             `json:"position"`
}

type StudentQuizView struct {
	ID           uint                  `json:"id"`
	Title        string                `json:"title"`
	Description  *string               `json:"description,omitempty"`
	TimeLimit    int                   `json:"time_limit"`
	MaxAttempts  int                   `json:"max_attempts"`
	PassingScore int                   `json:"passing_score"`
	Questions    []StudentQuestionView `json:"questions"`
}
