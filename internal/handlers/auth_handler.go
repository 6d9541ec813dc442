package handlers

import (
	"errors"
	"log"

	"jengamart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes. They are all public.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/refresh", h.HandleRefresh)
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	user, tokens, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		log.Printf("Error registering user: %v", err)
		if errors.Is(err, services.ErrConflict) {
			return respondErrorAs(c, fiber.StatusBadRequest, err, "Registration failed")
		}
		return respondError(c, err, "Could not register user")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":   user,
		"tokens": tokens,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin checks the credentials and issues a token pair.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	user, tokens, err := h.authService.Login(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Phone, err)
		return respondError(c, err, "Authentication failed")
	}

	return c.JSON(fiber.Map{
		"user":   user,
		"tokens": tokens,
	})
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// HandleRefresh exchanges a refresh token for a new access token.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	access, err := h.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondErrorAs(c, fiber.StatusUnauthorized, err, "Token refresh failed")
	}
	return c.JSON(fiber.Map{"access_token": access})
}
