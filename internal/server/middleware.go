package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/apperrors"
	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/stories"
)

// Roles recognized by the API.
const (
	RoleAdmin     = "Admin"
	RoleManager   = "Manager"
	RoleDeveloper = "Developer"
)

// publicPath reports whether a request path skips authentication.
func publicPath(path string) bool {
	if path == "/healthz" || path == "/readyz" || path == "/metrics" {
		return true
	}
	return strings.HasPrefix(path, "/api/auth/")
}

// NewAuthMiddleware returns a Fiber middleware that validates the bearer JWT
// and stores the caller identity in Locals.
func NewAuthMiddleware(tokens *auth.Manager, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if publicPath(c.Path()) {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}

		claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			logger.Warn().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("unauthorized request: invalid token")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_token", "Unauthorized",
				"Invalid or expired token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}

// requireRole returns a middleware that allows only the listed roles.
func requireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		for _, a := range allowed {
			if role == a {
				return c.Next()
			}
		}
		return problemResponse(c, fiber.StatusForbidden,
			"insufficient_role", "Forbidden",
			"Insufficient permissions for this operation")
	}
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func callerRole(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// serviceError maps an error from the service layer to a problem response.
// Callers must be able to tell configuration problems, upstream outages,
// unusable model output and missing records apart.
func serviceError(c *fiber.Ctx, err error) error {
	var unusable *stories.UnusableOutputError
	switch {
	case errors.As(err, &unusable):
		return c.Status(fiber.StatusBadGateway).JSON(ProblemDetail{
			Type:        "unusable_output",
			Title:       "Bad Gateway",
			Status:      fiber.StatusBadGateway,
			Detail:      "Failed to generate valid user stories",
			Instance:    c.Path(),
			RawResponse: unusable.Raw,
		})
	case errors.Is(err, apperrors.ErrConfig):
		return problemResponse(c, fiber.StatusInternalServerError,
			"config_error", "Internal Server Error", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case errors.Is(err, apperrors.ErrForbidden):
		return problemResponse(c, fiber.StatusForbidden,
			"forbidden", "Forbidden", err.Error())
	case errors.Is(err, apperrors.ErrUpstreamAuth):
		return problemResponse(c, fiber.StatusBadGateway,
			"upstream_auth_error", "Bad Gateway",
			"The model service rejected the configured credentials")
	case errors.Is(err, apperrors.ErrUpstream):
		return problemResponse(c, fiber.StatusBadGateway,
			"upstream_error", "Bad Gateway",
			"The model service request failed")
	default:
		return problemResponse(c, fiber.StatusInternalServerError,
			"internal_error", "Internal Server Error", err.Error())
	}
}
