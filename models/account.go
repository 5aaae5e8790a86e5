package models

import "time"

// Account is an authenticated user of the tracker. PasswordHash and the
// reset-code fields never leave the server.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Pending password reset, if any.
	ResetCodeHash  string     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
}
