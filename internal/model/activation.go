package model

import "time"

// Activation holds the single-use code a user must present to
// activate their account. Exactly one row is created together with
// each self-registered user; invited and seeded users never get one.
// Once IsUsed is true the row is terminal.
type Activation struct {
	ID        uint64    // activations.id
	UserID    string    // activations.user_id
	Code      string    // activations.activation_code
	IsUsed    bool      // activations.is_used
	CreatedAt time.Time // activations.created_at
	UpdatedAt time.Time // activations.updated_at
}
