package ports

import (
	"context"
	"time"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
)

type RoomRepository interface {
	Create(ctx context.Context, room domain.Room, caretakerIDs []string) (*domain.Room, error)
	Update(ctx context.Context, room domain.Room, caretakerIDs *[]string) (*domain.Room, error)
	Delete(ctx context.Context, roomID string) error
	FindByID(ctx context.Context, roomID string) (*domain.Room, error)
	// ListVisible returns active rooms the viewer may see, applying the
	// same role rules as policy.CanViewRoom in a single query.
	ListVisible(ctx context.Context, viewer domain.Identity) ([]domain.Room, error)
	// ReplaceUserRooms replaces the set of rooms a caretaker is assigned to.
	ReplaceUserRooms(ctx context.Context, userID string, roomIDs []string) error
	ExistAll(ctx context.Context, roomIDs []string) (bool, error)
}

type AlarmRepository interface {
	// Trigger atomically deactivates every active alarm in alarm.RoomID,
	// inserts the new active alarm and writes the outbox row, all in one
	// transaction serialized per room.
	Trigger(ctx context.Context, alarm domain.Alarm, outboxPayload []byte) (*domain.Alarm, error)
	// Acknowledge applies the acknowledgement only if the alarm has not
	// been acknowledged before. The bool reports whether it was applied;
	// the returned alarm reflects stored state either way.
	Acknowledge(ctx context.Context, alarmID, byUserID string, at time.Time, outboxPayload []byte) (*domain.Alarm, bool, error)
	Reset(ctx context.Context, alarmID string) (*domain.Alarm, error)
	FindByID(ctx context.Context, alarmID string) (*domain.Alarm, error)
	// ListVisible returns alarms the viewer may see, newest trigger first,
	// optionally restricted to one status.
	ListVisible(ctx context.Context, viewer domain.Identity, status *domain.AlarmStatus) ([]domain.Alarm, error)
	ActiveForCaretaker(ctx context.Context, userID string) ([]domain.Alarm, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	FindByIDs(ctx context.Context, userIDs []string) ([]domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// ActiveCaretakerTokens returns the push tokens of active caretakers
	// assigned to the room, for the notification-dispatch payload.
	ActiveCaretakerTokens(ctx context.Context, roomID string) ([]string, error)
}
