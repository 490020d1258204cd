package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/store"
)

func validRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleDeveloper:
		return true
	}
	return false
}

// Register handles POST /api/auth/register.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Name, email and password are required")
	}

	role := req.Role
	if role == "" {
		role = RoleDeveloper
	}
	if !validRole(role) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Unknown role: "+req.Role)
	}

	existing, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		return serviceError(c, err)
	}
	if existing != nil {
		return problemResponse(c, fiber.StatusConflict,
			"email_taken", "Conflict", "An account with this email already exists")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	user := &store.User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: role}
	if err := h.store.CreateUser(user); err != nil {
		return serviceError(c, err)
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return serviceError(c, err)
	}

	h.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user registered")
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, User: toUserDTO(user)})
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	user, err := h.store.GetUserByEmail(strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		return serviceError(c, err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return problemResponse(c, fiber.StatusUnauthorized,
			"invalid_credentials", "Unauthorized", "Invalid email or password")
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(AuthResponse{Token: token, User: toUserDTO(user)})
}
