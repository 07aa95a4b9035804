package domain

import "time"

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleParent    Role = "PARENT"
	RoleCaretaker Role = "CARETAKER"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleParent, RoleCaretaker:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	FCMToken  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the authenticated caller as resolved from the
// identity-access-service token on every request.
type Identity struct {
	UserID string
	Role   Role
	Active bool
}
