package domain

import "time"

// Room is a monitored space owned by one parent and watched by the
// caretakers assigned to it. Caretakers is the fully-resolved membership
// set; repositories always populate it so access checks never need a
// second lookup.
type Room struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	ParentID         string    `json:"parent_id,omitempty"`
	IsActive         bool      `json:"is_active"`
	CustomAlarmSound string    `json:"custom_alarm_sound,omitempty"`
	Caretakers       []User    `json:"caretakers"`
	CreatedAt        time.Time `json:"created_at"`
}

// HasCaretaker reports whether the user is in the room's caretaker set.
func (r *Room) HasCaretaker(userID string) bool {
	for _, c := range r.Caretakers {
		if c.ID == userID {
			return true
		}
	}
	return false
}

// RoomPatch carries the mutable room fields for an update. Each pointer
// field is applied only when non-nil, so "absent" and "set to zero value"
// are distinguishable.
type RoomPatch struct {
	Name             *string
	Description      *string
	ParentID         *string
	IsActive         *bool
	CustomAlarmSound *string
	CaretakerIDs     *[]string
}
