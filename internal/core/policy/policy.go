// Package policy holds the pure access-control rules for rooms and alarms.
// Every function is a stateless decision over already-loaded values; nothing
// here touches storage, and results are never cached across requests because
// caretaker assignments can change between calls.
package policy

import (
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
)

// CanViewRoom reports whether the caller may see the room at all:
// admins see everything, parents see rooms they own, caretakers see
// rooms they are assigned to.
func CanViewRoom(id domain.Identity, room *domain.Room) bool {
	switch id.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleParent:
		return room.ParentID == id.UserID
	case domain.RoleCaretaker:
		return room.HasCaretaker(id.UserID)
	}
	return false
}

// CanViewAlarm delegates to the alarm's room.
func CanViewAlarm(id domain.Identity, alarm *domain.Alarm, room *domain.Room) bool {
	if alarm.RoomID != room.ID {
		return false
	}
	return CanViewRoom(id, room)
}

// CanManageRoom reports whether the caller may create, update or delete
// the room: admins, or the owning parent.
func CanManageRoom(id domain.Identity, room *domain.Room) bool {
	switch id.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleParent:
		return room.ParentID == id.UserID
	case domain.RoleCaretaker:
		return false
	}
	return false
}

// CanTrigger reports whether the caller may raise an alarm in the room.
// Caretakers never trigger; parents only for rooms they own.
func CanTrigger(id domain.Identity, room *domain.Room) bool {
	switch id.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleParent:
		return room.ParentID == id.UserID
	case domain.RoleCaretaker:
		return false
	}
	return false
}

// CanAcknowledge reports whether the caller may acknowledge the alarm.
// Visibility is sufficient: anyone who may see the alarm may answer it.
func CanAcknowledge(id domain.Identity, alarm *domain.Alarm, room *domain.Room) bool {
	return CanViewAlarm(id, alarm, room)
}

// CanReset reports whether the caller may reset the alarm to inactive.
func CanReset(id domain.Identity, alarm *domain.Alarm, room *domain.Room) bool {
	return CanViewAlarm(id, alarm, room)
}
