package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brightpay/console/internal/console/domain"
	"github.com/brightpay/console/internal/console/store"
	"github.com/brightpay/console/pkg/cryptox"
	"github.com/brightpay/console/pkg/idx"
)

var (
	ErrUserNotFound = errors.New("user_not_found")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrInvalidState = errors.New("invalid_status")
)

// UserService is the admin-facing record management over the same store the
// auth flows use. Identities it returns are always sanitized.
type UserService struct {
	Store      store.Store
	BcryptCost int
}

// CreateUserInput carries admin-supplied fields for a new account. Role and
// Status default to "user"/"active" when empty.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     string
	Status   string
}

// UpdateUserInput carries optional updates; nil fields are untouched.
// A non-nil Password is re-hashed before storage.
type UpdateUserInput struct {
	Email    *string
	Name     *string
	Password *string
	Role     *string
	Status   *string
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user.Sanitized(), nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	email := NormalizeEmail(in.Email)
	if err := ValidateEmail(email); err != nil {
		return domain.User{}, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return domain.User{}, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if err := validateRole(role); err != nil {
		return domain.User{}, err
	}

	status := in.Status
	if status == "" {
		status = domain.StatusActive
	}
	if err := validateStatus(status); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return user.Sanitized(), nil
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (domain.User, error) {
	patch := store.UserPatch{Name: in.Name}

	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if err := ValidateEmail(email); err != nil {
			return domain.User{}, err
		}
		patch.Email = &email
	}
	if in.Role != nil {
		if err := validateRole(*in.Role); err != nil {
			return domain.User{}, err
		}
		patch.Role = in.Role
	}
	if in.Status != nil {
		if err := validateStatus(*in.Status); err != nil {
			return domain.User{}, err
		}
		patch.Status = in.Status
	}
	if in.Password != nil {
		if err := ValidatePassword(*in.Password); err != nil {
			return domain.User{}, err
		}
		hash, err := cryptox.HashPassword(*in.Password, s.BcryptCost)
		if err != nil {
			return domain.User{}, fmt.Errorf("update user: hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	if err := s.Store.Users().UpdateUser(ctx, id, patch); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.User{}, ErrUserNotFound
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.User{}, ErrEmailTaken
		default:
			return domain.User{}, fmt.Errorf("update user: %w", err)
		}
	}

	return s.Get(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func validateRole(role string) error {
	switch role {
	case domain.RoleUser, domain.RoleAdmin:
		return nil
	}
	return ErrInvalidRole
}

func validateStatus(status string) error {
	switch status {
	case domain.StatusActive, domain.StatusInactive:
		return nil
	}
	return ErrInvalidState
}
