package policy

import (
	"testing"

	"github.com/openclass/quiz-service/internal/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		role      models.UserRole
		action    Action
		subjectID uint
		ownerID   uint
		want      bool
	}{
		{"admin creates users", models.RoleAdmin, UserCreate, 1, 0, true},
		{"teacher cannot create users", models.RoleTeacher, UserCreate, 2, 0, false},
		{"student cannot create users", models.RoleStudent, UserCreate, 3, 0, false},
		{"admin lists users", models.RoleAdmin, UserList, 1, 0, true},
		{"student cannot list users", models.RoleStudent, UserList, 3, 0, false},

		{"teacher edits own question", models.RoleTeacher, QuestionEdit, 2, 2, true},
		{"teacher cannot edit another teacher's question", models.RoleTeacher, QuestionEdit, 2, 5, false},
		{"teacher reads own question", models.RoleTeacher, QuestionView, 2, 2, true},
		{"teacher cannot read another teacher's question", models.RoleTeacher, QuestionView, 2, 5, false},
		{"admin edits any question", models.RoleAdmin, QuestionEdit, 1, 5, true},
		{"admin reads any question", models.RoleAdmin, QuestionView, 1, 5, true},
		{"student cannot create questions", models.RoleStudent, QuestionCreate, 3, 0, false},

		{"teacher publishes own quiz", models.RoleTeacher, QuizPublish, 2, 2, true},
		{"teacher reads own quiz", models.RoleTeacher, QuizView, 2, 2, true},
		{"teacher cannot read another teacher's quiz", models.RoleTeacher, QuizView, 2, 5, false},
		{"teacher cannot publish another teacher's quiz", models.RoleTeacher, QuizPublish, 2, 5, false},
		{"teacher cannot delete another teacher's quiz", models.RoleTeacher, QuizDelete, 2, 5, false},
		{"admin deletes any quiz", models.RoleAdmin, QuizDelete, 1, 5, true},

		{"student submits attempts", models.RoleStudent, AttemptSubmit, 3, 0, true},
		{"teacher cannot submit attempts", models.RoleTeacher, AttemptSubmit, 2, 0, false},
		{"admin cannot submit attempts", models.RoleAdmin, AttemptSubmit, 1, 0, false},
		{"student views own attempt", models.RoleStudent, AttemptView, 3, 3, true},
		{"student cannot view another student's attempt", models.RoleStudent, AttemptView, 3, 4, false},
		{"teacher has no blanket attempt access", models.RoleTeacher, AttemptView, 2, 4, false},
		{"admin views any attempt", models.RoleAdmin, AttemptView, 1, 4, true},

		{"every role has a dashboard", models.RoleStudent, AnalyticsDashboard, 3, 0, true},
		{"teacher reads analytics for own quiz", models.RoleTeacher, AnalyticsQuiz, 2, 2, true},
		{"teacher denied analytics for foreign quiz", models.RoleTeacher, AnalyticsQuiz, 2, 5, false},
		{"student denied quiz analytics", models.RoleStudent, AnalyticsQuiz, 3, 3, false},
		{"student reads own performance", models.RoleStudent, AnalyticsStudent, 3, 3, true},
		{"student denied another student's performance", models.RoleStudent, AnalyticsStudent, 3, 4, false},
		{"teacher has no blanket performance access", models.RoleTeacher, AnalyticsStudent, 2, 4, false},

		{"unknown action denies", models.RoleAdmin, Action("nope"), 1, 0, false},
		{"unknown role denies", models.UserRole("ghost"), QuizList, 9, 0, false},
		{"zero subject never owns", models.RoleTeacher, QuestionEdit, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.role, tt.action, tt.subjectID, tt.ownerID); got != tt.want {
				t.Errorf("Decide(%s, %s, %d, %d) = %v, want %v",
					tt.role, tt.action, tt.subjectID, tt.ownerID, got, tt.want)
			}
		})
	}
}

func TestCanManage(t *testing.T) {
	if !CanManage(models.RoleAdmin, 1, 99) {
		t.Error("admin should manage any owner's content")
	}
	if !CanManage(models.RoleTeacher, 2, 2) {
		t.Error("teacher should manage own content")
	}
	if CanManage(models.RoleTeacher, 2, 3) {
		t.Error("teacher should not manage another owner's content")
	}
	if CanManage(models.RoleStudent, 3, 3) {
		t.Error("student should not manage content")
	}
}
