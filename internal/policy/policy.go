// Package policy holds the role/action authorization table. Decisions
// are pure functions of role, action and resource ownership so they can
// be evaluated anywhere without touching storage.
package policy

import "github.com/openclass/quiz-service/internal/models"

// Action names a protected operation.
type Action string

const (
	UserCreate     Action = "user.create"
	UserList       Action = "user.list"
	UserView       Action = "user.view"
	UserUpdate     Action = "user.update"
	UserDeactivate Action = "user.deactivate"

	QuestionCreate Action = "question.create"
	QuestionList   Action = "question.list"
	QuestionView   Action = "question.view"
	QuestionEdit   Action = "question.edit"
	QuestionDelete Action = "question.delete"

	QuizCreate  Action = "quiz.create"
	QuizList    Action = "quiz.list"
	QuizView    Action = "quiz.view"
	QuizEdit    Action = "quiz.edit"
	QuizDelete  Action = "quiz.delete"
	QuizPublish Action = "quiz.publish"

	AttemptSubmit Action = "attempt.submit"
	AttemptView   Action = "attempt.view"

	AnalyticsDashboard Action = "analytics.dashboard"
	AnalyticsQuiz      Action = "analytics.quiz"
	AnalyticsStudent   Action = "analytics.student"
	AnalyticsExport    Action = "analytics.export"
)

// effect is the rule outcome for one (action, role) cell.
type effect int

const (
	deny effect = iota
	allow
	allowOwn // allowed only when the subject owns the resource
)

// rules is the authorization table. A missing cell denies.
var rules = map[Action]map[models.UserRole]effect{
	UserCreate:     {models.RoleAdmin: allow},
	UserList:       {models.RoleAdmin: allow},
	UserView:       {models.RoleAdmin: allow, models.RoleTeacher: allowOwn, models.RoleStudent: allowOwn},
	UserUpdate:     {models.RoleAdmin: allow, models.RoleTeacher: allowOwn, models.RoleStudent: allowOwn},
	UserDeactivate: {models.RoleAdmin: allow},

	// Teachers are scoped to their own content on reads as well as
	// writes. List actions gate entry; the services narrow the filter
	// to the caller's own rows.
	QuestionCreate: {models.RoleAdmin: allow, models.RoleTeacher: allow},
	QuestionList:   {models.RoleAdmin: allow, models.RoleTeacher: allow},
	QuestionView:   {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},
	QuestionEdit:   {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},
	QuestionDelete: {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},

	QuizCreate:  {models.RoleAdmin: allow, models.RoleTeacher: allow},
	QuizList:    {models.RoleAdmin: allow, models.RoleTeacher: allow, models.RoleStudent: allow},
	QuizView:    {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},
	QuizEdit:    {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},
	QuizDelete:  {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},
	QuizPublish: {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},

	// Teachers reach attempts and student performance only through
	// quizzes they own; the attempt and analytics services resolve the
	// quiz and check its creator.
	AttemptSubmit: {models.RoleStudent: allow},
	AttemptView:   {models.RoleAdmin: allow, models.RoleStudent: allowOwn},

	AnalyticsDashboard: {models.RoleAdmin: allow, models.RoleTeacher: allow, models.RoleStudent: allow},
	AnalyticsQuiz:      {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},
	AnalyticsStudent:   {models.RoleAdmin: allow, models.RoleStudent: allowOwn},
	AnalyticsExport:    {models.RoleAdmin: allow, models.RoleTeacher: allowOwn},
}

// Decide reports whether a subject with the given role may perform the
// action. ownerID is the resource owner for ownership-scoped rules;
// pass subjectID as ownerID for self-scoped actions, or 0 when the
// action has no owner.
func Decide(role models.UserRole, action Action, subjectID, ownerID uint) bool {
	cell, ok := rules[action]
	if !ok {
		return false
	}
	switch cell[role] {
	case allow:
		return true
	case allowOwn:
		return subjectID != 0 && subjectID == ownerID
	default:
		return false
	}
}

// CanManage reports whether the role may act on content owned by
// ownerID at all, used to pick edit affordances on read paths.
func CanManage(role models.UserRole, subjectID, ownerID uint) bool {
	return role == models.RoleAdmin || (role == models.RoleTeacher && subjectID == ownerID)
}
