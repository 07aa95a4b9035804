package services

import (
	"context"
	"strings"
	"time"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/policy"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
	"github.com/google/uuid"
)

// RoomService is the room directory: it owns room records and the
// caretaker-assignment membership, gated by the access policy.
type RoomService struct {
	roomRepo ports.RoomRepository
	userRepo ports.UserRepository
}

var _ ports.RoomService = (*RoomService)(nil)

func NewRoomService(roomRepo ports.RoomRepository, userRepo ports.UserRepository) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
		userRepo: userRepo,
	}
}

// requireActiveCaller rejects anonymous callers and deactivated accounts.
// Read endpoints only need authentication; every mutation goes through this.
func requireActiveCaller(caller domain.Identity) error {
	if caller.UserID == "" || !caller.Role.Valid() {
		return domain.ErrUnauthorized
	}
	if !caller.Active {
		return domain.ErrInactiveUser
	}
	return nil
}

func (s *RoomService) Create(ctx context.Context, caller domain.Identity, in ports.CreateRoomInput) (*domain.Room, error) {
	if err := requireActiveCaller(caller); err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleCaretaker {
		return nil, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}

	parentID := in.ParentID
	switch caller.Role {
	case domain.RoleParent:
		// Parents only create rooms for themselves.
		if parentID != "" && parentID != caller.UserID {
			return nil, domain.ErrForbidden
		}
		parentID = caller.UserID
	case domain.RoleAdmin:
		if parentID != "" {
			if err := s.validateParent(ctx, parentID); err != nil {
				return nil, err
			}
		}
	}

	if err := s.validateCaretakers(ctx, in.CaretakerIDs); err != nil {
		return nil, err
	}

	room := domain.Room{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		ParentID:         parentID,
		IsActive:         true,
		CustomAlarmSound: in.CustomAlarmSound,
		CreatedAt:        time.Now(),
	}

	return s.roomRepo.Create(ctx, room, in.CaretakerIDs)
}

func (s *RoomService) Update(ctx context.Context, caller domain.Identity, roomID string, patch domain.RoomPatch) (*domain.Room, error) {
	if err := requireActiveCaller(caller); err != nil {
		return nil, err
	}

	room, err := s.visibleRoom(ctx, caller, roomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageRoom(caller, room) {
		return nil, domain.ErrForbidden
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "name is required")
		}
		room.Name = name
	}
	if patch.Description != nil {
		room.Description = *patch.Description
	}
	if patch.ParentID != nil {
		if caller.Role != domain.RoleAdmin {
			return nil, domain.ErrForbidden
		}
		if *patch.ParentID != "" {
			if err := s.validateParent(ctx, *patch.ParentID); err != nil {
				return nil, err
			}
		}
		room.ParentID = *patch.ParentID
	}
	if patch.IsActive != nil {
		room.IsActive = *patch.IsActive
	}
	if patch.CustomAlarmSound != nil {
		room.CustomAlarmSound = *patch.CustomAlarmSound
	}
	if patch.CaretakerIDs != nil {
		if err := s.validateCaretakers(ctx, *patch.CaretakerIDs); err != nil {
			return nil, err
		}
	}

	// A nil caretaker slice leaves the membership untouched; a non-nil one
	// replaces the set wholesale.
	return s.roomRepo.Update(ctx, *room, patch.CaretakerIDs)
}

func (s *RoomService) Delete(ctx context.Context, caller domain.Identity, roomID string) error {
	if err := requireActiveCaller(caller); err != nil {
		return err
	}

	room, err := s.visibleRoom(ctx, caller, roomID)
	if err != nil {
		return err
	}
	if !policy.CanManageRoom(caller, room) {
		return domain.ErrForbidden
	}

	// Owned alarms and caretaker associations cascade at the storage layer.
	return s.roomRepo.Delete(ctx, room.ID)
}

func (s *RoomService) Get(ctx context.Context, caller domain.Identity, roomID string) (*domain.Room, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.visibleRoom(ctx, caller, roomID)
}

func (s *RoomService) List(ctx context.Context, caller domain.Identity) ([]domain.Room, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.roomRepo.ListVisible(ctx, caller)
}

// AssignRooms replaces the set of rooms a caretaker is assigned to.
// Admin-only; the target must be a caretaker and every room must exist.
func (s *RoomService) AssignRooms(ctx context.Context, caller domain.Identity, userID string, roomIDs []string) (*domain.User, error) {
	if err := requireActiveCaller(caller); err != nil {
		return nil, err
	}
	if caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleCaretaker {
		return nil, domain.NewValidationError("user_id", "rooms can only be assigned to caretakers")
	}

	ok, err := s.roomRepo.ExistAll(ctx, roomIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewValidationError("room_ids", "one or more rooms do not exist")
	}

	if err := s.roomRepo.ReplaceUserRooms(ctx, user.ID, roomIDs); err != nil {
		return nil, err
	}
	return user, nil
}

// visibleRoom loads a room and hides its existence from callers the policy
// does not allow to see it: invisible and absent are both NotFound.
func (s *RoomService) visibleRoom(ctx context.Context, caller domain.Identity, roomID string) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewRoom(caller, room) {
		return nil, domain.ErrNotFound
	}
	return room, nil
}

func (s *RoomService) validateParent(ctx context.Context, parentID string) error {
	parent, err := s.userRepo.FindByID(ctx, parentID)
	if err != nil {
		return domain.NewValidationError("parent_id", "parent does not exist")
	}
	if parent.Role != domain.RoleParent {
		return domain.NewValidationError("parent_id", "user is not a parent")
	}
	return nil
}

// validateCaretakers rejects ids that are missing or belong to users whose
// role is not caretaker. A silently dropped id would leave the caller
// believing a caretaker watches the room when nobody does.
func (s *RoomService) validateCaretakers(ctx context.Context, caretakerIDs []string) error {
	if len(caretakerIDs) == 0 {
		return nil
	}
	users, err := s.userRepo.FindByIDs(ctx, caretakerIDs)
	if err != nil {
		return err
	}
	if len(users) != len(caretakerIDs) {
		return domain.NewValidationError("caretaker_ids", "one or more caretakers do not exist")
	}
	for _, u := range users {
		if u.Role != domain.RoleCaretaker {
			return domain.NewValidationError("caretaker_ids", "user "+u.ID+" is not a caretaker")
		}
	}
	return nil
}
