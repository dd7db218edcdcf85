package model

import "time"

// Link roles a parent profile can hold toward a player profile.
const (
	LinkRoleGuardian = "guardian"
	LinkRoleFollower = "follower"
	LinkRoleOwner    = "owner"
)

type ParentProfile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerProfile is unclaimed until UserID is set by the claim flow.
type PlayerProfile struct {
	ID              int64     `json:"id"`
	UserID          *int64    `json:"user_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	DOB             string    `json:"dob"`
	TeamName        string    `json:"team_name"`
	JerseyNumber    string    `json:"jersey_number"`
	Position        string    `json:"position"`
	ProfileImageURL string    `json:"profile_image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// ParentPlayerLink rows are unique per (parent_id, player_id, role).
type ParentPlayerLink struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parent_id"`
	PlayerID  int64     `json:"player_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
