package domain

import "time"

// Role enumerates application user roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAgent     Role = "agent"
	RoleDeveloper Role = "developer"
	RoleClient    Role = "client"
)

// IsStaff reports whether the role belongs to the support organization.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleAgent || r == RoleDeveloper
}

// Profile is an application user.
type Profile struct {
	ID        string
	Email     string
	FullName  string
	Role      Role
	EntityID  *string
	CreatedAt time.Time
}

// Entity is a client organization.
type Entity struct {
	ID                string
	Name              string
	DefaultAssigneeID *string
	CreatedAt         time.Time
}
