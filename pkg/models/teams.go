package models

// TeamID identifies a team.
type TeamID int64

// Team groups users for team-scoped alert targeting.
type Team struct {
	ID          TeamID `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	Timestamps
	MemberCount int `db:"-" json:"member_count"`
}

// CreateTeamRequest defines the payload required to create a new team.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateTeamRequest defines updatable fields for a team. Nil fields are
// left unchanged.
type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}
