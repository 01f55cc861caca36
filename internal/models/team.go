package models

import "time"

// Role is a member's rank within a team.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"

	// RoleNone is returned for users with no membership in a team.
	RoleNone Role = ""
)

var roleRank = map[Role]int{
	RoleOwner:  4,
	RoleAdmin:  3,
	RoleEditor: 2,
	RoleViewer: 1,
}

// Rank returns the role's position in the fixed order
// owner > admin > editor > viewer; zero for unknown roles.
func (r Role) Rank() int { return roleRank[r] }

// Valid reports whether r is one of the four member roles.
func (r Role) Valid() bool { return roleRank[r] > 0 }

// Assignable reports whether r may be requested on an invitation.
// Ownership is never granted by invitation.
func (r Role) Assignable() bool { return r.Valid() && r != RoleOwner }

// Team is a named collaboration workspace.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	IsPublic  bool      `json:"is_public"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership is the (team, user, role) relationship granting access.
// At most one row exists per (team, user) pair.
type Membership struct {
	TeamID   int64     `json:"team_id"`
	UserID   int64     `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Member is a membership joined with the user's public profile,
// as served by the member-listing endpoint.
type Member struct {
	Membership
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
