package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
	"github.com/diagnosis/luxsuv-identity/internal/repo/postgres"
)

type UserService interface {
	UpdateProfile(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.AuthUser, error)
	ListUsers(ctx context.Context, limit, offset int) ([]domain.AuthUser, error)
	GetUser(ctx context.Context, id string) (*domain.AuthUser, error)
	UpdateUser(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.AuthUser, error)
	DeleteUser(ctx context.Context, id string) error
}

type userService struct {
	userRepo postgres.UserRepository
}

func NewUserService(userRepo postgres.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) UpdateProfile(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.AuthUser, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if user.Protected {
		return nil, domain.ErrUserProtected
	}

	updated, err := s.userRepo.UpdateProfile(ctx, id, req)
	if err != nil {
		if err == domain.ErrDuplicateUser {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrUserNotFound
	}

	return domain.NewAuthUser(updated)
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]domain.AuthUser, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]domain.AuthUser, 0, len(users))
	for i := range users {
		au, err := domain.NewAuthUser(&users[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *au)
	}
	return out, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.AuthUser, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return domain.NewAuthUser(user)
}

func (s *userService) UpdateUser(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.AuthUser, error) {
	if req.RoleID != nil {
		if _, err := domain.RoleFromInt(*req.RoleID); err != nil {
			return nil, err
		}
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if user.Protected {
		return nil, domain.ErrUserProtected
	}

	updated, err := s.userRepo.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrUserNotFound
	}

	return domain.NewAuthUser(updated)
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if user.Protected {
		return domain.ErrUserProtected
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
