package domain

import "time"

// User is the domain model for registered accounts, both case owners and executors.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	Photo        *string
	Description  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
