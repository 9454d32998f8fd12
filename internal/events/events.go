// Package events publishes domain events to Kafka. Events are
// fire-and-forget: failures are logged and never block the operation
// that raised them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	SourceService = "quiz-service"
	EventVersion  = "1.0"
)

// Event types emitted by the service.
const (
	TypeUserRegistered   = "user.registered"
	TypePasswordReset    = "user.password_reset_requested"
	TypeQuizPublished    = "quiz.published"
	TypeAttemptSubmitted = "attempt.submitted"
	TypeEmailRequested   = "notification.email"
)

// Event is the envelope every published message travels in.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    SourceService,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher sends events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// ===== event payloads =====

type UserRegisteredEvent struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type PasswordResetRequestedEvent struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

type QuizPublishedEvent struct {
	QuizID          uint   `json:"quiz_id"`
	Title           string `json:"title"`
	CreatedBy       uint   `json:"created_by"`
	AllowedStudents []uint `json:"allowed_students,omitempty"`
}

type AttemptSubmittedEvent struct {
	AttemptID     uint    `json:"attempt_id"`
	QuizID        uint    `json:"quiz_id"`
	StudentID     uint    `json:"student_id"`
	AttemptNumber int     `json:"attempt_number"`
	Percentage    float64 `json:"percentage"`
	Passed        bool    `json:"passed"`
}

type EmailEvent struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
