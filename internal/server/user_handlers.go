package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/planwise/planwise/internal/auth"
)

// ListUsers handles GET /api/users. Managers need it to assign team members.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.store.ListUsers()
	if err != nil {
		return serviceError(c, err)
	}

	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	return c.JSON(out)
}

// Me handles GET /api/users/me.
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := h.store.GetUser(callerID(c))
	if err != nil {
		return serviceError(c, err)
	}
	if user == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "User not found")
	}
	return c.JSON(toUserDTO(user))
}

// DeleteAccount handles DELETE /api/users/me. The caller must confirm their
// password; the cascade removes memberships, assigned tasks and the stories
// of projects they belonged to.
func (h *Handlers) DeleteAccount(c *fiber.Ctx) error {
	var req DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.Password == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Password is required to delete account")
	}

	user, err := h.store.GetUser(callerID(c))
	if err != nil {
		return serviceError(c, err)
	}
	if user == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "User not found")
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return problemResponse(c, fiber.StatusUnauthorized,
			"invalid_credentials", "Unauthorized", "Incorrect password")
	}

	found, err := h.store.DeleteUserCascade(user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	if !found {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", "User not found")
	}

	h.logger.Info().Str("user_id", user.ID).Msg("account deleted")
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}
