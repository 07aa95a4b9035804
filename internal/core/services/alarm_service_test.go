package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/services"
	"github.com/AchilleasB/baby-kliniek/alarm-service/test/mocks"
)

const fanoutWait = 2 * time.Second

type alarmFixture struct {
	alarmRepo *mocks.MockAlarmRepository
	roomRepo  *mocks.MockRoomRepository
	userRepo  *mocks.MockUserRepository
	publisher *mocks.MockEventPublisher
	service   *services.AlarmService
}

// newAlarmFixture seeds one room owned by parent-1, watched by caretaker-1.
// caretaker-2 exists but is not assigned anywhere.
func newAlarmFixture() *alarmFixture {
	f := &alarmFixture{
		alarmRepo: mocks.NewMockAlarmRepository(),
		roomRepo:  mocks.NewMockRoomRepository(),
		userRepo:  mocks.NewMockUserRepository(),
		publisher: mocks.NewMockEventPublisher(),
	}
	f.service = services.NewAlarmService(f.alarmRepo, f.roomRepo, f.userRepo, services.NewFanout(f.publisher))

	parent := domain.User{ID: "parent-1", Name: "Pat Parent", Role: domain.RoleParent, IsActive: true}
	watcher := domain.User{ID: "caretaker-1", Name: "Cara Taker", Role: domain.RoleCaretaker, IsActive: true, FCMToken: "fcm-caretaker-1"}
	outsider := domain.User{ID: "caretaker-2", Name: "Dee Nied", Role: domain.RoleCaretaker, IsActive: true, FCMToken: "fcm-caretaker-2"}
	admin := domain.User{ID: "admin-1", Name: "Ada Min", Role: domain.RoleAdmin, IsActive: true}

	for _, u := range []domain.User{parent, watcher, outsider, admin} {
		f.userRepo.SeedUser(u)
	}

	f.roomRepo.SeedRoom(domain.Room{
		ID:         "room-1",
		Name:       "Nursery",
		ParentID:   "parent-1",
		IsActive:   true,
		Caretakers: []domain.User{watcher},
	})
	f.userRepo.AssignToRoom("room-1", "caretaker-1")
	f.alarmRepo.AssignCaretaker("room-1", "caretaker-1")

	return f
}

func identity(userID string, role domain.Role) domain.Identity {
	return domain.Identity{UserID: userID, Role: role, Active: true}
}

func TestAlarmService_Trigger(t *testing.T) {
	tests := []struct {
		name    string
		caller  domain.Identity
		roomID  string
		wantErr error
	}{
		{
			name:   "owning_parent_triggers_successfully",
			caller: identity("parent-1", domain.RoleParent),
			roomID: "room-1",
		},
		{
			name:   "admin_triggers_successfully",
			caller: identity("admin-1", domain.RoleAdmin),
			roomID: "room-1",
		},
		{
			name:    "other_parent_is_forbidden",
			caller:  identity("parent-2", domain.RoleParent),
			roomID:  "room-1",
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "caretaker_is_forbidden",
			caller:  identity("caretaker-1", domain.RoleCaretaker),
			roomID:  "room-1",
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "unknown_room_is_not_found",
			caller:  identity("parent-1", domain.RoleParent),
			roomID:  "room-404",
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "inactive_caller_is_rejected",
			caller:  domain.Identity{UserID: "parent-1", Role: domain.RoleParent, Active: false},
			roomID:  "room-1",
			wantErr: domain.ErrInactiveUser,
		},
		{
			name:    "anonymous_caller_is_unauthorized",
			caller:  domain.Identity{},
			roomID:  "room-1",
			wantErr: domain.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAlarmFixture()

			alarm, err := f.service.Trigger(context.Background(), tt.caller, tt.roomID)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if len(f.alarmRepo.TriggerCalls) != 0 {
					t.Error("repository must not be touched on a denied trigger")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if alarm.Status != domain.AlarmActive {
				t.Errorf("expected status active, got %q", alarm.Status)
			}
			if alarm.RoomID != tt.roomID {
				t.Errorf("expected room %q, got %q", tt.roomID, alarm.RoomID)
			}
			if alarm.ParentID != tt.caller.UserID {
				t.Errorf("expected parent %q, got %q", tt.caller.UserID, alarm.ParentID)
			}
			if alarm.TriggeredAt.IsZero() {
				t.Error("expected non-zero triggered_at")
			}
		})
	}
}

func TestAlarmService_Trigger_ValidatesRoomID(t *testing.T) {
	f := newAlarmFixture()

	_, err := f.service.Trigger(context.Background(), identity("parent-1", domain.RoleParent), "")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// Triggering twice leaves exactly one active alarm: the second trigger
// deactivates the first inside the same repository transaction.
func TestAlarmService_Trigger_SingleActivePerRoom(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()
	parent := identity("parent-1", domain.RoleParent)

	first, err := f.service.Trigger(ctx, parent, "room-1")
	if err != nil {
		t.Fatalf("first trigger failed: %v", err)
	}
	second, err := f.service.Trigger(ctx, parent, "room-1")
	if err != nil {
		t.Fatalf("second trigger failed: %v", err)
	}

	stored, err := f.alarmRepo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != domain.AlarmInactive {
		t.Errorf("first alarm should be inactive, got %q", stored.Status)
	}
	if second.Status != domain.AlarmActive {
		t.Errorf("second alarm should be active, got %q", second.Status)
	}
	if got := f.alarmRepo.ActiveCountForRoom("room-1"); got != 1 {
		t.Errorf("expected exactly 1 active alarm, got %d", got)
	}
}

func TestAlarmService_Trigger_ConcurrentTriggersKeepOneActive(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()
	parent := identity("parent-1", domain.RoleParent)

	const numTriggers = 25

	var wg sync.WaitGroup
	for i := 0; i < numTriggers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Trigger(ctx, parent, "room-1"); err != nil {
				t.Errorf("concurrent trigger failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := f.alarmRepo.ActiveCountForRoom("room-1"); got != 1 {
		t.Errorf("expected exactly 1 active alarm after %d concurrent triggers, got %d", numTriggers, got)
	}
	if got := len(f.alarmRepo.TriggerCalls); got != numTriggers {
		t.Errorf("expected %d trigger calls, got %d", numTriggers, got)
	}
}

func TestAlarmService_Trigger_FansOutToRoomAndCaretakerChannels(t *testing.T) {
	f := newAlarmFixture()

	alarm, err := f.service.Trigger(context.Background(), identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.publisher.WaitForCount(2, fanoutWait) {
		t.Fatalf("expected 2 published messages, got %d", len(f.publisher.GetPublished()))
	}

	channels := map[string]bool{}
	for _, msg := range f.publisher.GetPublished() {
		channels[msg.Channel] = true
		if msg.Event != ports.EventAlarmTriggered {
			t.Errorf("expected event %q, got %q", ports.EventAlarmTriggered, msg.Event)
		}

		var snapshot ports.AlarmEventSnapshot
		if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
			t.Fatalf("payload did not decode: %v", err)
		}
		if snapshot.Alarm.ID != alarm.ID {
			t.Errorf("snapshot alarm %q, want %q", snapshot.Alarm.ID, alarm.ID)
		}
		if snapshot.Room.ID != "room-1" {
			t.Errorf("snapshot room %q, want room-1", snapshot.Room.ID)
		}
		if snapshot.Parent.ID != "parent-1" {
			t.Errorf("snapshot parent %q, want parent-1", snapshot.Parent.ID)
		}
	}

	if !channels[ports.RoomChannel("room-1")] {
		t.Error("expected publish on room.room-1")
	}
	if !channels[ports.ChannelCaretakers] {
		t.Error("expected publish on caretakers")
	}
}

func TestAlarmService_Trigger_PushPayloadCarriesCaretakerTokens(t *testing.T) {
	f := newAlarmFixture()

	_, err := f.service.Trigger(context.Background(), identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.alarmRepo.OutboxPayloads) != 1 {
		t.Fatalf("expected 1 outbox payload, got %d", len(f.alarmRepo.OutboxPayloads))
	}

	var evt ports.PushEvent
	if err := json.Unmarshal(f.alarmRepo.OutboxPayloads[0], &evt); err != nil {
		t.Fatalf("outbox payload did not decode: %v", err)
	}
	if evt.Event != ports.EventAlarmTriggered {
		t.Errorf("expected push event %q, got %q", ports.EventAlarmTriggered, evt.Event)
	}
	if evt.RoomID != "room-1" {
		t.Errorf("expected room-1, got %q", evt.RoomID)
	}
	if len(evt.FCMTokens) != 1 || evt.FCMTokens[0] != "fcm-caretaker-1" {
		t.Errorf("expected assigned caretaker's token only, got %v", evt.FCMTokens)
	}
}

// A failing publisher must never surface as a trigger failure.
func TestAlarmService_Trigger_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newAlarmFixture()
	f.publisher.PublishError = context.DeadlineExceeded

	alarm, err := f.service.Trigger(context.Background(), identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("trigger must succeed despite publish failure, got %v", err)
	}
	if alarm.Status != domain.AlarmActive {
		t.Errorf("expected active alarm, got %q", alarm.Status)
	}
}

func TestAlarmService_Acknowledge(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()

	alarm, err := f.service.Trigger(ctx, identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if !f.publisher.WaitForCount(2, fanoutWait) {
		t.Fatal("expected the trigger broadcast before acknowledging")
	}

	acked, err := f.service.Acknowledge(ctx, identity("caretaker-1", domain.RoleCaretaker), alarm.ID)
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if acked.Status != domain.AlarmAcknowledged {
		t.Errorf("expected status acknowledged, got %q", acked.Status)
	}
	if acked.AcknowledgedBy != "caretaker-1" {
		t.Errorf("expected acknowledged_by caretaker-1, got %q", acked.AcknowledgedBy)
	}
	if acked.AcknowledgedAt == nil {
		t.Fatal("expected acknowledged_at to be set")
	}

	// Trigger publishes 2 messages, acknowledge 2 more.
	if !f.publisher.WaitForCount(4, fanoutWait) {
		t.Fatalf("expected 4 published messages, got %d", len(f.publisher.GetPublished()))
	}
	ackMessages := 0
	for _, msg := range f.publisher.GetPublished() {
		if msg.Event != ports.EventAlarmAcknowledged {
			continue
		}
		ackMessages++

		var snapshot ports.AlarmEventSnapshot
		if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
			t.Fatalf("payload did not decode: %v", err)
		}
		if snapshot.AcknowledgedBy == nil || snapshot.AcknowledgedBy.ID != "caretaker-1" {
			t.Errorf("snapshot should carry the acknowledger, got %+v", snapshot.AcknowledgedBy)
		}
	}
	if ackMessages != 2 {
		t.Errorf("expected 2 acknowledge messages, got %d", ackMessages)
	}
}

// A repeat acknowledge is a no-op: same state back, no error, no second
// broadcast and no overwritten acknowledged_at.
func TestAlarmService_Acknowledge_Idempotent(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()
	watcher := identity("caretaker-1", domain.RoleCaretaker)

	alarm, err := f.service.Trigger(ctx, identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	first, err := f.service.Acknowledge(ctx, watcher, alarm.ID)
	if err != nil {
		t.Fatalf("first acknowledge failed: %v", err)
	}
	if !f.publisher.WaitForCount(4, fanoutWait) {
		t.Fatalf("expected 4 published messages after first acknowledge")
	}

	second, err := f.service.Acknowledge(ctx, watcher, alarm.ID)
	if err != nil {
		t.Fatalf("repeat acknowledge must not error, got %v", err)
	}
	if !second.AcknowledgedAt.Equal(*first.AcknowledgedAt) {
		t.Error("acknowledged_at must never be overwritten")
	}
	if second.AcknowledgedBy != first.AcknowledgedBy {
		t.Error("acknowledged_by must never be overwritten")
	}
	time.Sleep(50 * time.Millisecond)
	if got := f.publisher.CallCount(); got != 4 {
		t.Errorf("repeat acknowledge must not broadcast, got %d publishes", got)
	}
}

func TestAlarmService_Acknowledge_Denied(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()

	alarm, err := f.service.Trigger(ctx, identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	_, err = f.service.Acknowledge(ctx, identity("caretaker-2", domain.RoleCaretaker), alarm.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("unassigned caretaker must be forbidden, got %v", err)
	}

	_, err = f.service.Acknowledge(ctx, identity("caretaker-1", domain.RoleCaretaker), "alarm-404")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown alarm must be not found, got %v", err)
	}
}

func TestAlarmService_Acknowledge_InactiveAlarmConflicts(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()

	alarm, err := f.service.Trigger(ctx, identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if _, err := f.service.Reset(ctx, identity("parent-1", domain.RoleParent), alarm.ID); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	_, err = f.service.Acknowledge(ctx, identity("caretaker-1", domain.RoleCaretaker), alarm.ID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("acknowledging deactivated history must conflict, got %v", err)
	}
}

// A reset that lands between the acknowledger's read and write must
// surface as the same conflict as the sequential case, not as a
// successful acknowledgement of an inactive alarm.
func TestAlarmService_Acknowledge_RacingResetConflicts(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()

	alarm, err := f.service.Trigger(ctx, identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	f.alarmRepo.AcknowledgeHook = func() {
		if _, err := f.alarmRepo.Reset(ctx, alarm.ID); err != nil {
			t.Errorf("interleaved reset failed: %v", err)
		}
	}

	_, err = f.service.Acknowledge(ctx, identity("caretaker-1", domain.RoleCaretaker), alarm.ID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	stored, err := f.alarmRepo.FindByID(ctx, alarm.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != domain.AlarmInactive {
		t.Errorf("alarm must stay inactive, got %q", stored.Status)
	}
	if stored.AcknowledgedAt != nil {
		t.Error("acknowledged_at must not be set by the losing acknowledger")
	}
}

// Reset is silent: the alarm goes inactive and nothing is broadcast.
func TestAlarmService_Reset(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()

	alarm, err := f.service.Trigger(ctx, identity("parent-1", domain.RoleParent), "room-1")
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if _, err := f.service.Acknowledge(ctx, identity("caretaker-1", domain.RoleCaretaker), alarm.ID); err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if !f.publisher.WaitForCount(4, fanoutWait) {
		t.Fatal("expected trigger and acknowledge broadcasts before reset")
	}

	reset, err := f.service.Reset(ctx, identity("caretaker-1", domain.RoleCaretaker), alarm.ID)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if reset.Status != domain.AlarmInactive {
		t.Errorf("expected status inactive, got %q", reset.Status)
	}
	time.Sleep(50 * time.Millisecond)
	if got := f.publisher.CallCount(); got != 4 {
		t.Errorf("reset must not broadcast, got %d publishes", got)
	}

	_, err = f.service.Reset(ctx, identity("caretaker-2", domain.RoleCaretaker), alarm.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("unassigned caretaker must be forbidden, got %v", err)
	}
}

func TestAlarmService_List(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	ackAt := base.Add(30 * time.Minute)
	f.alarmRepo.SeedAlarm(domain.Alarm{
		ID: "alarm-old", RoomID: "room-1", ParentID: "parent-1",
		Status: domain.AlarmInactive, TriggeredAt: base,
	})
	f.alarmRepo.SeedAlarm(domain.Alarm{
		ID: "alarm-mid", RoomID: "room-1", ParentID: "parent-1",
		Status: domain.AlarmAcknowledged, TriggeredAt: base.Add(10 * time.Minute),
		AcknowledgedAt: &ackAt, AcknowledgedBy: "caretaker-1",
	})
	f.alarmRepo.SeedAlarm(domain.Alarm{
		ID: "alarm-new", RoomID: "room-1", ParentID: "parent-1",
		Status: domain.AlarmActive, TriggeredAt: base.Add(20 * time.Minute),
	})
	// Another parent's alarm in a room caretaker-1 is not assigned to.
	f.alarmRepo.SeedAlarm(domain.Alarm{
		ID: "alarm-other", RoomID: "room-2", ParentID: "parent-2",
		Status: domain.AlarmActive, TriggeredAt: base.Add(40 * time.Minute),
	})

	t.Run("parent_sees_own_alarms_newest_first", func(t *testing.T) {
		alarms, err := f.service.List(ctx, identity("parent-1", domain.RoleParent), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"alarm-new", "alarm-mid", "alarm-old"}
		if len(alarms) != len(want) {
			t.Fatalf("expected %d alarms, got %d", len(want), len(alarms))
		}
		for i, id := range want {
			if alarms[i].ID != id {
				t.Errorf("position %d: expected %q, got %q", i, id, alarms[i].ID)
			}
		}
	})

	t.Run("status_filter_applies", func(t *testing.T) {
		status := domain.AlarmActive
		alarms, err := f.service.List(ctx, identity("parent-1", domain.RoleParent), &status)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alarms) != 1 || alarms[0].ID != "alarm-new" {
			t.Errorf("expected only alarm-new, got %v", alarms)
		}
	})

	t.Run("caretaker_sees_assigned_rooms_only", func(t *testing.T) {
		alarms, err := f.service.List(ctx, identity("caretaker-1", domain.RoleCaretaker), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, a := range alarms {
			if a.RoomID != "room-1" {
				t.Errorf("caretaker-1 must not see alarm %q in room %q", a.ID, a.RoomID)
			}
		}
		if len(alarms) != 3 {
			t.Errorf("expected 3 alarms, got %d", len(alarms))
		}
	})

	t.Run("unassigned_caretaker_sees_nothing", func(t *testing.T) {
		alarms, err := f.service.List(ctx, identity("caretaker-2", domain.RoleCaretaker), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alarms) != 0 {
			t.Errorf("expected no alarms, got %d", len(alarms))
		}
	})

	t.Run("admin_sees_all", func(t *testing.T) {
		alarms, err := f.service.List(ctx, identity("admin-1", domain.RoleAdmin), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alarms) != 4 {
			t.Errorf("expected 4 alarms, got %d", len(alarms))
		}
	})

	t.Run("invalid_status_is_rejected", func(t *testing.T) {
		status := domain.AlarmStatus("exploded")
		_, err := f.service.List(ctx, identity("admin-1", domain.RoleAdmin), &status)
		if !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestAlarmService_ActiveForCaretaker(t *testing.T) {
	f := newAlarmFixture()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	f.alarmRepo.SeedAlarm(domain.Alarm{
		ID: "alarm-a", RoomID: "room-1", ParentID: "parent-1",
		Status: domain.AlarmActive, TriggeredAt: base,
	})
	f.alarmRepo.SeedAlarm(domain.Alarm{
		ID: "alarm-b", RoomID: "room-1", ParentID: "parent-1",
		Status: domain.AlarmInactive, TriggeredAt: base.Add(time.Minute),
	})

	alarms, err := f.service.ActiveForCaretaker(ctx, identity("caretaker-1", domain.RoleCaretaker))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alarms) != 1 || alarms[0].ID != "alarm-a" {
		t.Errorf("expected only the active alarm, got %v", alarms)
	}

	none, err := f.service.ActiveForCaretaker(ctx, identity("caretaker-2", domain.RoleCaretaker))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unassigned caretaker must see no active alarms, got %d", len(none))
	}
}
