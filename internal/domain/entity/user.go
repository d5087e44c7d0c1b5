package entity

import "time"

// Role enumerates user authorization roles. Stored as a Postgres enum.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// User is the aggregate root for the user domain. PasswordHash holds an
// argon2id digest and never leaves the persistence/auth boundary.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Phone        string
	Name         string
	Surname      string
	Address      string
	AvatarURL    string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
