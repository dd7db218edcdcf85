package model

import "time"

const (
	RoleParent = "parent"
	RolePlayer = "player"
	RoleCoach  = "coach"
	RoleAdmin  = "admin"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
