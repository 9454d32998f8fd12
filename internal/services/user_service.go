package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openclass/quiz-service/internal/auth"
	"github.com/openclass/quiz-service/internal/events"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/policy"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/validator"
)

const resetTokenTTL = time.Hour

type userService struct {
	repo      repositories.Repository
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenManager
	mail      events.MailSender
	publisher events.Publisher
	validator *validator.Validator
	logger    *slog.Logger
}

func NewUserService(
	repo repositories.Repository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	mail events.MailSender,
	publisher events.Publisher,
	v *validator.Validator,
	logger *slog.Logger,
) UserService {
	return &userService{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		mail:      mail,
		publisher: publisher,
		validator: v,
		logger:    logger,
	}
}

func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	// Public registration always yields a student account.
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, models.RoleStudent)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewEvent(events.TypeUserRegistered, events.UserRegisteredEvent{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
	}))

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, actor Actor, req *models.CreateUserRequest) (*models.User, error) {
	if !policy.Decide(actor.Role, policy.UserCreate, actor.ID, 0) {
		return nil, NewPermissionError("only admins can create accounts")
	}
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role, "created_by", actor.ID)
	return user, nil
}

func (s *userService) createUser(ctx context.Context, name, email, password string, role models.UserRole) (*models.User, error) {
	if _, err := s.repo.User().GetByEmail(ctx, email); err == nil {
		return nil, NewAlreadyExistsError("email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, NewStoreError("lookup email", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, NewStoreError("hash password", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		// The unique index is the backstop for concurrent registrations;
		// anything else is a store failure, not a duplicate.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, NewAlreadyExistsError("email already registered")
		}
		return nil, NewStoreError("create user", err)
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (string, *models.User, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return "", nil, NewValidationError(errs.Error())
	}

	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Same response as a wrong password, no account probing.
			return "", nil, NewInvalidCredentialError()
		}
		return "", nil, NewStoreError("lookup user", err)
	}
	if !user.IsActive {
		return "", nil, NewInvalidCredentialError()
	}
	if !s.hasher.Compare(user.PasswordHash, req.Password) {
		return "", nil, NewInvalidCredentialError()
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, NewStoreError("issue token", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return token, user, nil
}

func (s *userService) GetProfile(ctx context.Context, actor Actor, userID uint) (*models.User, error) {
	if !policy.Decide(actor.Role, policy.UserView, actor.ID, userID) {
		return nil, NewPermissionError("cannot view this profile")
	}
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("user", userID)
		}
		return nil, NewStoreError("get user", err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor Actor, userID uint, req *models.UpdateProfileRequest) (*models.User, error) {
	if !policy.Decide(actor.Role, policy.UserUpdate, actor.ID, userID) {
		return nil, NewPermissionError("cannot update this profile")
	}
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, NewValidationError(errs.Error())
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewNotFoundError("user", userID)
		}
		return nil, NewStoreError("get user", err)
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, NewStoreError("update user", err)
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, actor Actor, req *models.ChangePasswordRequest) error {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return NewValidationError(errs.Error())
	}

	user, err := s.repo.User().GetByID(ctx, actor.ID)
	if err != nil {
		return NewStoreError("get user", err)
	}
	if !s.hasher.Compare(user.PasswordHash, req.CurrentPassword) {
		return NewInvalidCredentialError()
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return NewStoreError("hash password", err)
	}
	user.PasswordHash = hash
	if err := s.repo.User().Update(ctx, user); err != nil {
		return NewStoreError("update user", err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	return nil
}

// RequestPasswordReset is deliberately silent about unknown emails.
func (s *userService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.User().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return NewStoreError("lookup user", err)
	}

	token := uuid.NewString()
	expires := time.Now().Add(resetTokenTTL)
	user.ResetToken = &token
	user.ResetTokenExpires = &expires
	if err := s.repo.User().Update(ctx, user); err != nil {
		return NewStoreError("store reset token", err)
	}

	if s.mail != nil {
		body := fmt.Sprintf("Use this token to reset your password: %s\nIt expires in one hour.", token)
		if err := s.mail.Send(ctx, user.Email, "Password reset", body); err != nil {
			s.logger.ErrorContext(ctx, "reset mail failed", "user_id", user.ID, "error", err)
		}
	}

	s.publishEvent(ctx, events.NewEvent(events.TypePasswordReset, events.PasswordResetRequestedEvent{
		UserID: user.ID,
		Email:  user.Email,
	}))

	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return NewValidationError(errs.Error())
	}

	user, err := s.repo.User().GetByResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewInvalidCredentialError()
		}
		return NewStoreError("lookup reset token", err)
	}
	if user.ResetTokenExpires == nil || time.Now().After(*user.ResetTokenExpires) {
		return NewInvalidCredentialError()
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return NewStoreError("hash password", err)
	}
	user.PasswordHash = hash
	user.ResetToken = nil
	user.ResetTokenExpires = nil
	if err := s.repo.User().Update(ctx, user); err != nil {
		return NewStoreError("update user", err)
	}

	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	return nil
}

func (s *userService) List(ctx context.Context, actor Actor, filter repositories.UserFilter) ([]models.User, int64, error) {
	if !policy.Decide(actor.Role, policy.UserList, actor.ID, 0) {
		return nil, 0, NewPermissionError("only admins can list accounts")
	}
	users, total, err := s.repo.User().List(ctx, filter)
	if err != nil {
		return nil, 0, NewStoreError("list users", err)
	}
	return users, total, nil
}

func (s *userService) SetActive(ctx context.Context, actor Actor, userID uint, active bool) error {
	if !policy.Decide(actor.Role, policy.UserDeactivate, actor.ID, 0) {
		return NewPermissionError("only admins can change account status")
	}
	if actor.ID == userID && !active {
		return NewValidationError("cannot deactivate your own account")
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewNotFoundError("user", userID)
		}
		return NewStoreError("get user", err)
	}

	user.IsActive = active
	if err := s.repo.User().Update(ctx, user); err != nil {
		return NewStoreError("update user", err)
	}

	s.logger.InfoContext(ctx, "account status changed", "user_id", userID, "active", active, "by", actor.ID)
	return nil
}

func (s *userService) publishEvent(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "event publish failed", "event_type", event.Type, "error", err)
	}
}
