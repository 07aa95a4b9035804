package ports

import (
	"context"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
)

// CreateRoomInput carries the fields accepted on room creation.
type CreateRoomInput struct {
	Name             string
	Description      string
	ParentID         string
	CustomAlarmSound string
	CaretakerIDs     []string
}

type RoomService interface {
	Create(ctx context.Context, caller domain.Identity, in CreateRoomInput) (*domain.Room, error)
	Update(ctx context.Context, caller domain.Identity, roomID string, patch domain.RoomPatch) (*domain.Room, error)
	Delete(ctx context.Context, caller domain.Identity, roomID string) error
	Get(ctx context.Context, caller domain.Identity, roomID string) (*domain.Room, error)
	List(ctx context.Context, caller domain.Identity) ([]domain.Room, error)
	AssignRooms(ctx context.Context, caller domain.Identity, userID string, roomIDs []string) (*domain.User, error)
}

type AlarmService interface {
	Trigger(ctx context.Context, caller domain.Identity, roomID string) (*domain.Alarm, error)
	Acknowledge(ctx context.Context, caller domain.Identity, alarmID string) (*domain.Alarm, error)
	Reset(ctx context.Context, caller domain.Identity, alarmID string) (*domain.Alarm, error)
	List(ctx context.Context, caller domain.Identity, status *domain.AlarmStatus) ([]domain.Alarm, error)
	ActiveForCaretaker(ctx context.Context, caller domain.Identity) ([]domain.Alarm, error)
}

type UserService interface {
	List(ctx context.Context, caller domain.Identity) ([]domain.User, error)
}
