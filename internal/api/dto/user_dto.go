package dto

import (
	"time"

	"github.com/spec-kit/ideaflow/internal/domain"
)

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse returned by register and login.
type AuthResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ProfileResponse exposes the public profile fields.
type ProfileResponse struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Photo       *string `json:"photo"`
	Description *string `json:"description"`
}

// UpdateProfileRequest payload for PUT /profile/:id.
type UpdateProfileRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Photo       *string `json:"photo"`
	Description *string `json:"description"`
}

// NewProfileResponse maps a domain user onto the public profile shape.
func NewProfileResponse(user *domain.User) ProfileResponse {
	return ProfileResponse{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Photo:       user.Photo,
		Description: user.Description,
	}
}
