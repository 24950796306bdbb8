package models

// UserID identifies a user.
type UserID int64

// UserRole controls what a user may do. Admins manage alerts, users,
// and teams; members only interact with their own notifications.
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleMember:
		return true
	default:
		return false
	}
}

// User is a person who can author or receive alerts. Deactivated users
// keep their history but are excluded from targeting and login.
type User struct {
	ID       UserID   `db:"id" json:"id"`
	Name     string   `db:"name" json:"name"`
	Email    string   `db:"email" json:"email"`
	Role     UserRole `db:"role" json:"role"`
	TeamID   *TeamID  `db:"team_id" json:"team_id,omitempty"`
	IsActive bool     `db:"is_active" json:"is_active"`
	Timestamps
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// CreateUserRequest defines the payload required to create a new user.
type CreateUserRequest struct {
	Name   string   `json:"name" validate:"required,min=1,max=100"`
	Email  string   `json:"email" validate:"required,email"`
	Role   UserRole `json:"role" validate:"omitempty,oneof=admin member"`
	TeamID *TeamID  `json:"team_id"`
}

// UpdateUserRequest defines updatable fields for a user. Nil fields are
// left unchanged.
type UpdateUserRequest struct {
	Name     *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string   `json:"email" validate:"omitempty,email"`
	Role     *UserRole `json:"role" validate:"omitempty,oneof=admin member"`
	TeamID   *TeamID   `json:"team_id"`
	IsActive *bool     `json:"is_active"`
}

// LoginRequest identifies a user by email for the header-based identity
// scheme used by the API.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserFilter narrows user listings.
type UserFilter struct {
	TeamID   TeamID
	Role     UserRole
	IsActive *bool
}
