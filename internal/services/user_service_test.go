package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/openclass/quiz-service/internal/auth"
	"github.com/openclass/quiz-service/internal/events"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/repositories/memory"
)

func TestRegisterForcesStudentRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.manager.Users().Register(ctx, &models.RegisterRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Role != models.RoleStudent {
		t.Errorf("Role = %s, want student", user.Role)
	}
	if user.PasswordHash == "longenough" {
		t.Error("password must be stored hashed")
	}

	if got := env.publisher.EventsOfType(events.TypeUserRegistered); len(got) != 1 {
		t.Errorf("published %d registration events, want 1", len(got))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := &models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "longenough"}
	if _, err := env.manager.Users().Register(ctx, req); err != nil {
		t.Fatal(err)
	}
	_, err := env.manager.Users().Register(ctx, &models.RegisterRequest{
		Name: "Other", Email: "ANA@example.com", Password: "different1",
	})
	if !IsKind(err, KindAlreadyExists) {
		t.Errorf("duplicate register = %v, want AlreadyExists", err)
	}
}

// failingUserStore forces Create to fail so the error mapping on the
// write path is observable.
type failingUserStore struct {
	repositories.UserRepository
	createErr error
}

func (f *failingUserStore) Create(ctx context.Context, user *models.User) error {
	return f.createErr
}

type repoWithUserStore struct {
	repositories.Repository
	users repositories.UserRepository
}

func (r *repoWithUserStore) User() repositories.UserRepository { return r.users }

func TestRegisterCreateFailureMapping(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		wantKind  ErrorKind
	}{
		{
			"unique violation is a duplicate",
			fmt.Errorf("email %q: %w", "ana@example.com", repositories.ErrDuplicate),
			KindAlreadyExists,
		},
		{
			"store outage is not a duplicate",
			errors.New("connection refused"),
			KindStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := memory.NewRepository()
			repo := &repoWithUserStore{
				Repository: base,
				users:      &failingUserStore{UserRepository: base.User(), createErr: tt.createErr},
			}
			manager, err := NewManager(ManagerConfig{
				Repo:   repo,
				Hasher: auth.NewPasswordHasher(4),
				Tokens: auth.NewTokenManager("test-secret", time.Hour),
				Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			if err != nil {
				t.Fatalf("NewManager failed: %v", err)
			}

			_, err = manager.Users().Register(context.Background(), &models.RegisterRequest{
				Name: "Ana", Email: "ana@example.com", Password: "longenough",
			})
			if !IsKind(err, tt.wantKind) {
				t.Errorf("Register = %v, want %s", err, tt.wantKind)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.manager.Users().Register(ctx, &models.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "longenough",
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		token, got, err := env.manager.Users().Login(ctx, &models.LoginRequest{
			Email: "ana@example.com", Password: "longenough",
		})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if token == "" || got.ID != user.ID {
			t.Errorf("token=%q user=%d", token, got.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := env.manager.Users().Login(ctx, &models.LoginRequest{
			Email: "ana@example.com", Password: "wrong-pass",
		})
		if !IsKind(err, KindInvalidCredential) {
			t.Errorf("err = %v, want InvalidCredential", err)
		}
	})

	t.Run("unknown email matches wrong password", func(t *testing.T) {
		_, _, err := env.manager.Users().Login(ctx, &models.LoginRequest{
			Email: "ghost@example.com", Password: "whatever1",
		})
		if !IsKind(err, KindInvalidCredential) {
			t.Errorf("err = %v, want InvalidCredential", err)
		}
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		admin := env.seedUser(t, "admin", models.RoleAdmin)
		if err := env.manager.Users().SetActive(ctx, env.actorFor(admin), user.ID, false); err != nil {
			t.Fatal(err)
		}
		_, _, err := env.manager.Users().Login(ctx, &models.LoginRequest{
			Email: "ana@example.com", Password: "longenough",
		})
		if !IsKind(err, KindInvalidCredential) {
			t.Errorf("err = %v, want InvalidCredential", err)
		}
	})
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.seedUser(t, "admin", models.RoleAdmin)
	teacher := env.seedUser(t, "teacher", models.RoleTeacher)

	req := &models.CreateUserRequest{
		Name: "New Teacher", Email: "new@example.com", Password: "longenough", Role: models.RoleTeacher,
	}

	if _, err := env.manager.Users().CreateUser(ctx, env.actorFor(teacher), req); !IsKind(err, KindPermissionDenied) {
		t.Errorf("teacher create = %v, want PermissionDenied", err)
	}

	created, err := env.manager.Users().CreateUser(ctx, env.actorFor(admin), req)
	if err != nil {
		t.Fatalf("admin create failed: %v", err)
	}
	if created.Role != models.RoleTeacher {
		t.Errorf("Role = %s, want teacher", created.Role)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.manager.Users().Register(ctx, &models.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "longenough",
	}); err != nil {
		t.Fatal(err)
	}

	if err := env.manager.Users().RequestPasswordReset(ctx, "ana@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	// Unknown addresses get the same silence.
	if err := env.manager.Users().RequestPasswordReset(ctx, "ghost@example.com"); err != nil {
		t.Errorf("unknown email should not error, got %v", err)
	}

	mails := env.publisher.EventsOfType(events.TypeEmailRequested)
	if len(mails) != 1 {
		t.Fatalf("published %d mail events, want 1", len(mails))
	}
	// The reset request also raises its own domain event, once.
	if got := env.publisher.EventsOfType(events.TypePasswordReset); len(got) != 1 {
		t.Errorf("published %d reset events, want 1", len(got))
	}
	mail, ok := mails[0].Data.(events.EmailEvent)
	if !ok {
		t.Fatalf("mail payload type %T", mails[0].Data)
	}

	// The token travels in the mail body.
	idx := strings.LastIndexByte(strings.Split(mail.Body, "\n")[0], ' ')
	token := strings.Split(mail.Body, "\n")[0][idx+1:]

	if err := env.manager.Users().ResetPassword(ctx, &models.ResetPasswordRequest{
		Token: "bogus-token", NewPassword: "anotherpass",
	}); !IsKind(err, KindInvalidCredential) {
		t.Errorf("bogus token = %v, want InvalidCredential", err)
	}

	if err := env.manager.Users().ResetPassword(ctx, &models.ResetPasswordRequest{
		Token: token, NewPassword: "anotherpass",
	}); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, _, err := env.manager.Users().Login(ctx, &models.LoginRequest{
		Email: "ana@example.com", Password: "anotherpass",
	}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, _, err := env.manager.Users().Login(ctx, &models.LoginRequest{
		Email: "ana@example.com", Password: "longenough",
	}); !IsKind(err, KindInvalidCredential) {
		t.Errorf("old password should be rejected, got %v", err)
	}

	// A used token is dead.
	if err := env.manager.Users().ResetPassword(ctx, &models.ResetPasswordRequest{
		Token: token, NewPassword: "thirdpassword",
	}); !IsKind(err, KindInvalidCredential) {
		t.Errorf("reused token = %v, want InvalidCredential", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.manager.Users().Register(ctx, &models.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "longenough",
	})
	if err != nil {
		t.Fatal(err)
	}
	actor := Actor{ID: user.ID, Role: user.Role}

	if err := env.manager.Users().ChangePassword(ctx, actor, &models.ChangePasswordRequest{
		CurrentPassword: "wrong-pass", NewPassword: "newpassword",
	}); !IsKind(err, KindInvalidCredential) {
		t.Errorf("wrong current password = %v, want InvalidCredential", err)
	}

	if err := env.manager.Users().ChangePassword(ctx, actor, &models.ChangePasswordRequest{
		CurrentPassword: "longenough", NewPassword: "newpassword",
	}); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, _, err := env.manager.Users().Login(ctx, &models.LoginRequest{
		Email: "ana@example.com", Password: "newpassword",
	}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}

func TestListAndDeactivateScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.seedUser(t, "admin", models.RoleAdmin)
	student := env.seedUser(t, "student", models.RoleStudent)

	if _, _, err := env.manager.Users().List(ctx, env.actorFor(student), repositories.UserFilter{}); !IsKind(err, KindPermissionDenied) {
		t.Errorf("student list = %v, want PermissionDenied", err)
	}

	users, total, err := env.manager.Users().List(ctx, env.actorFor(admin), repositories.UserFilter{})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Errorf("list returned %d/%d users, want 2", len(users), total)
	}

	if err := env.manager.Users().SetActive(ctx, env.actorFor(student), admin.ID, false); !IsKind(err, KindPermissionDenied) {
		t.Errorf("student deactivate = %v, want PermissionDenied", err)
	}
	if err := env.manager.Users().SetActive(ctx, env.actorFor(admin), admin.ID, false); !IsKind(err, KindValidation) {
		t.Errorf("self deactivate = %v, want Validation", err)
	}
}
