package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RolePowerUser UserRole = "poweruser"
	RoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RolePowerUser, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may manage other users' orders and events.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RolePowerUser
}

// UserRef is the compact user projection embedded by the server into events,
// comments and history records.
type UserRef struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role,omitempty"`
}

// AuthUser is the authenticated session identity.
type AuthUser struct {
	ID          string   `json:"_id"`
	Email       string   `json:"email"`
	AccessToken string   `json:"accessToken"`
	Role        UserRole `json:"role"`
}

// Valid reports whether every field needed to act on behalf of the user is present.
func (u AuthUser) Valid() bool {
	return u.ID != "" &&
		strings.Contains(u.Email, "@") &&
		u.AccessToken != "" &&
		u.Role.Valid()
}

type AdminUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
