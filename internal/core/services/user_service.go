package services

import (
	"context"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

// UserService exposes the read-only user directory this service needs.
// Account creation and credential management live in the
// identity-access-service.
type UserService struct {
	userRepo ports.UserRepository
}

var _ ports.UserService = (*UserService)(nil)

func NewUserService(userRepo ports.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// List returns every user. Admin-only.
func (s *UserService) List(ctx context.Context, caller domain.Identity) ([]domain.User, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	return s.userRepo.List(ctx)
}
