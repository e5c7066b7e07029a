package model

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// DefaultAdminUsername is the username given to the bootstrap administrator.
const DefaultAdminUsername = "admin"

// User represents an account that can sign in to the tracker.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"uniqueIndex;size:100;not null"`
	Email          *string   `json:"email,omitempty" gorm:"size:255"`
	PasswordHash   *string   `json:"-" gorm:"size:255"` // Never expose in JSON
	Role           Role      `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	IsActive       bool      `json:"isActive" gorm:"not null;default:false"`
	PasswordSet    bool      `json:"passwordSet" gorm:"not null;default:false"`
	IsDefaultAdmin bool      `json:"isDefaultAdmin" gorm:"not null;default:false;index"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetupComplete reports whether the user finished first-time password setup.
func (u *User) SetupComplete() bool {
	return u.PasswordSet && u.PasswordHash != nil
}
