package ports

import (
	"context"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
)

const (
	EventAlarmTriggered    = "alarm.triggered"
	EventAlarmAcknowledged = "alarm.acknowledged"
	ChannelCaretakers      = "caretakers"
	roomChannelPrefix      = "room."

	// PushEventType marks outbox rows destined for the push queue.
	PushEventType = "alarm.push"
)

// RoomChannel returns the room-scoped channel name for a room id.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// AlarmEventSnapshot is the broadcast payload, captured by value at publish
// time so subscribers never observe later mutations.
type AlarmEventSnapshot struct {
	Alarm          domain.Alarm `json:"alarm"`
	Room           domain.Room  `json:"room"`
	Parent         domain.User  `json:"parent"`
	AcknowledgedBy *domain.User `json:"acknowledged_by,omitempty"`
}

// PushEvent is the outbox payload relayed to the push-notification queue.
type PushEvent struct {
	Event       string   `json:"event"`
	AlarmID     string   `json:"alarm_id"`
	RoomID      string   `json:"room_id"`
	RoomName    string   `json:"room_name"`
	AlarmSound  string   `json:"alarm_sound,omitempty"`
	TriggeredAt string   `json:"triggered_at"`
	FCMTokens   []string `json:"fcm_tokens"`
}

// EventPublisher delivers a named event to one subscriber channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel, event string, payload []byte) error
}

// PushPublisher hands a push event to the notification-dispatch queue.
type PushPublisher interface {
	PublishPushEvent(ctx context.Context, evt PushEvent) error
}
