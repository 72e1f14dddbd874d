package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dormdesk/maintenance-service/internal/api/dto"
	"github.com/dormdesk/maintenance-service/internal/service"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.service.Register(c.UserContext(), req.Username, req.Password, req.Name, req.Phone)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.service.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      dto.NewUserResponse(user),
	}})
}
