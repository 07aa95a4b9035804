package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/policy"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
	"github.com/google/uuid"
)

// AlarmService is the alarm lifecycle engine. It enforces the legal state
// transitions (inactive -> active -> acknowledged, anything -> inactive via
// reset) and the at-most-one-active-alarm-per-room invariant, and hands
// state changes to the fan-out and the push outbox.
type AlarmService struct {
	alarmRepo ports.AlarmRepository
	roomRepo  ports.RoomRepository
	userRepo  ports.UserRepository
	fanout    *Fanout
}

var _ ports.AlarmService = (*AlarmService)(nil)

func NewAlarmService(
	alarmRepo ports.AlarmRepository,
	roomRepo ports.RoomRepository,
	userRepo ports.UserRepository,
	fanout *Fanout,
) *AlarmService {
	return &AlarmService{
		alarmRepo: alarmRepo,
		roomRepo:  roomRepo,
		userRepo:  userRepo,
		fanout:    fanout,
	}
}

// Trigger raises a new active alarm for the room. Any alarm currently
// active in the room is deactivated in the same transaction, so two
// concurrent triggers can never leave two active alarms behind.
func (s *AlarmService) Trigger(ctx context.Context, caller domain.Identity, roomID string) (*domain.Alarm, error) {
	if err := requireActiveCaller(caller); err != nil {
		return nil, err
	}
	if roomID == "" {
		return nil, domain.NewValidationError("room_id", "room_id is required")
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanTrigger(caller, room) {
		return nil, domain.ErrForbidden
	}

	parent, err := s.userRepo.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	alarm := domain.Alarm{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		ParentID:    caller.UserID,
		Status:      domain.AlarmActive,
		TriggeredAt: time.Now(),
	}

	outboxPayload, err := s.pushPayload(ctx, ports.EventAlarmTriggered, alarm, room)
	if err != nil {
		return nil, err
	}

	stored, err := s.alarmRepo.Trigger(ctx, alarm, outboxPayload)
	if err != nil {
		return nil, err
	}

	s.fanout.AlarmTriggered(ports.AlarmEventSnapshot{
		Alarm:  *stored,
		Room:   *room,
		Parent: *parent,
	})
	return stored, nil
}

// Acknowledge marks an active alarm as acknowledged by the caller. An
// already-acknowledged alarm is returned unchanged: the first answer is
// the one that counts, and acknowledged_at is never overwritten.
func (s *AlarmService) Acknowledge(ctx context.Context, caller domain.Identity, alarmID string) (*domain.Alarm, error) {
	if err := requireActiveCaller(caller); err != nil {
		return nil, err
	}

	alarm, room, err := s.loadAlarm(ctx, alarmID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAcknowledge(caller, alarm, room) {
		return nil, domain.ErrForbidden
	}

	switch alarm.Status {
	case domain.AlarmAcknowledged:
		return alarm, nil
	case domain.AlarmInactive:
		// Deactivated history cannot be acknowledged after the fact.
		return nil, domain.ErrConflict
	}

	acknowledger, err := s.userRepo.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	parent, err := s.userRepo.FindByID(ctx, alarm.ParentID)
	if err != nil {
		return nil, err
	}

	outboxPayload, err := s.pushPayload(ctx, ports.EventAlarmAcknowledged, *alarm, room)
	if err != nil {
		return nil, err
	}

	stored, applied, err := s.alarmRepo.Acknowledge(ctx, alarm.ID, caller.UserID, time.Now(), outboxPayload)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent writer got there first. A racing acknowledgement is
		// the same idempotent outcome as the sequential repeat; a racing
		// reset is the same conflict as acknowledging deactivated history.
		if stored.Status == domain.AlarmInactive {
			return nil, domain.ErrConflict
		}
		return stored, nil
	}

	s.fanout.AlarmAcknowledged(ports.AlarmEventSnapshot{
		Alarm:          *stored,
		Room:           *room,
		Parent:         *parent,
		AcknowledgedBy: acknowledger,
	})
	return stored, nil
}

// Reset deactivates the alarm unconditionally. Reset is deliberately
// silent: no realtime event and no push notification.
func (s *AlarmService) Reset(ctx context.Context, caller domain.Identity, alarmID string) (*domain.Alarm, error) {
	if err := requireActiveCaller(caller); err != nil {
		return nil, err
	}

	alarm, room, err := s.loadAlarm(ctx, alarmID)
	if err != nil {
		return nil, err
	}
	if !policy.CanReset(caller, alarm, room) {
		return nil, domain.ErrForbidden
	}

	return s.alarmRepo.Reset(ctx, alarm.ID)
}

func (s *AlarmService) List(ctx context.Context, caller domain.Identity, status *domain.AlarmStatus) ([]domain.Alarm, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if status != nil && !status.Valid() {
		return nil, domain.NewValidationError("status", "status must be one of inactive, active, acknowledged")
	}
	return s.alarmRepo.ListVisible(ctx, caller, status)
}

func (s *AlarmService) ActiveForCaretaker(ctx context.Context, caller domain.Identity) ([]domain.Alarm, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.alarmRepo.ActiveForCaretaker(ctx, caller.UserID)
}

func (s *AlarmService) loadAlarm(ctx context.Context, alarmID string) (*domain.Alarm, *domain.Room, error) {
	alarm, err := s.alarmRepo.FindByID(ctx, alarmID)
	if err != nil {
		return nil, nil, err
	}
	room, err := s.roomRepo.FindByID(ctx, alarm.RoomID)
	if err != nil {
		return nil, nil, err
	}
	return alarm, room, nil
}

// pushPayload builds the outbox payload for the notification-dispatch
// queue, including the push tokens of the room's active caretakers. The
// token list is captured here so the relay needs no database round trip
// back into this service's tables.
func (s *AlarmService) pushPayload(ctx context.Context, event string, alarm domain.Alarm, room *domain.Room) ([]byte, error) {
	tokens, err := s.userRepo.ActiveCaretakerTokens(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		log.Printf("alarm service: no reachable caretakers for room %s, push event %s will have no recipients", room.ID, event)
	}

	return json.Marshal(ports.PushEvent{
		Event:       event,
		AlarmID:     alarm.ID,
		RoomID:      room.ID,
		RoomName:    room.Name,
		AlarmSound:  room.CustomAlarmSound,
		TriggeredAt: alarm.TriggeredAt.UTC().Format(time.RFC3339),
		FCMTokens:   tokens,
	})
}
