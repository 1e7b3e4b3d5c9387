package models

import "time"

// User is the lightweight session identity. There are no credentials: a
// session is issued for a display name and the id becomes the stable member
// identity inside teams.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}
