package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ideaflow/internal/api/dto"
	"github.com/spec-kit/ideaflow/internal/repository"
	"github.com/spec-kit/ideaflow/internal/service"
	apperrors "github.com/spec-kit/ideaflow/pkg/util"
)

// UsersHandler exposes registration, login and profile endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}

	user, token, exp, err := h.auth.Register(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		ID:        user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: exp,
	})
}

// Login handles POST /login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}

	user, token, exp, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{
		ID:        user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: exp,
	})
}

// GetProfile handles GET /profile/:id.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := parseParamInt64(c, "id")
	if err != nil {
		return err
	}
	user, err := h.auth.GetProfile(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewProfileResponse(user))
}

// UpdateProfile handles PUT /profile/:id.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := parseParamInt64(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.auth.UpdateProfile(c.Context(), userID, repository.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Photo:       req.Photo,
		Description: req.Description,
	}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "profile updated"})
}
