package domain

import "time"

type AlarmStatus string

const (
	AlarmInactive     AlarmStatus = "inactive"
	AlarmActive       AlarmStatus = "active"
	AlarmAcknowledged AlarmStatus = "acknowledged"
)

func (s AlarmStatus) Valid() bool {
	switch s {
	case AlarmInactive, AlarmActive, AlarmAcknowledged:
		return true
	}
	return false
}

// Alarm is one triggered condition in a room. At most one alarm per room
// is in status=active at any instant; triggering a new alarm deactivates
// the previous one rather than deleting it, so history is preserved.
type Alarm struct {
	ID             string      `json:"id"`
	RoomID         string      `json:"room_id"`
	ParentID       string      `json:"parent_id"`
	Status         AlarmStatus `json:"status"`
	TriggeredAt    time.Time   `json:"triggered_at"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string      `json:"acknowledged_by,omitempty"`
	Notes          string      `json:"notes,omitempty"`
}
