package model

import "time"

const (
	TokenTypeFamilyGuardian = "family_guardian"
	TokenTypeFamilyFollower = "family_follower"
	TokenTypeClaim          = "claim"
	TokenTypeInvite         = "invite"
)

// MagicLink is one sign-in request. ConsumedAt is set at most once.
type MagicLink struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	Code       string     `json:"code"`
	TokenHash  string     `json:"token_hash"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LinkToken is a single-use family linking code. UsedAt is set at most once.
type LinkToken struct {
	ID             int64      `json:"id"`
	Token          string     `json:"token"`
	Type           string     `json:"type"`
	Role           string     `json:"role"`
	PlayerID       int64      `json:"player_id"`
	IssuedByUserID *int64     `json:"issued_by_user_id"`
	Email          string     `json:"email"`
	ExpiresAt      time.Time  `json:"expires_at"`
	UsedAt         *time.Time `json:"used_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
