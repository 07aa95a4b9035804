package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/services"
	"github.com/AchilleasB/baby-kliniek/alarm-service/test/mocks"
)

func TestUserService_List(t *testing.T) {
	userRepo := mocks.NewMockUserRepository()
	userRepo.SeedUser(domain.User{ID: "admin-1", Role: domain.RoleAdmin, IsActive: true})
	userRepo.SeedUser(domain.User{ID: "parent-1", Role: domain.RoleParent, IsActive: true})
	userRepo.SeedUser(domain.User{ID: "caretaker-1", Role: domain.RoleCaretaker, IsActive: true})
	service := services.NewUserService(userRepo)
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  domain.Identity
		wantErr error
	}{
		{name: "admin_lists_users", caller: identity("admin-1", domain.RoleAdmin)},
		{name: "parent_is_forbidden", caller: identity("parent-1", domain.RoleParent), wantErr: domain.ErrForbidden},
		{name: "caretaker_is_forbidden", caller: identity("caretaker-1", domain.RoleCaretaker), wantErr: domain.ErrForbidden},
		{name: "anonymous_is_unauthorized", caller: domain.Identity{}, wantErr: domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := service.List(ctx, tt.caller)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(users) != 3 {
				t.Errorf("expected 3 users, got %d", len(users))
			}
		})
	}
}
