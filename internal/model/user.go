package model

import (
	"strings"
	"time"
)

// Role is the authorization level attached to a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User is the profile returned by the login and profile endpoints and
// cached in local storage between runs.
//
// Fields:
//
//	ID        – immutable account identifier.
//	Name      – display name; the backend may leave it empty and send
//	            FirstName or Username instead.
//	Email     – login email, stored lower-cased.
//	Role      – user or admin.
//	CreatedAt – account creation timestamp.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Username  string    `json:"username,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName falls back from Name to FirstName to Username.
func (u User) DisplayName() string {
	for _, s := range []string{u.Name, u.FirstName, u.Username} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return u.Email
}

// Normalized fills Name from the fallbacks and defaults an unknown role to
// RoleUser so the rest of the client never sees an invalid role.
func (u User) Normalized() User {
	u.Name = u.DisplayName()
	if !u.Role.Valid() {
		u.Role = RoleUser
	}
	return u
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
