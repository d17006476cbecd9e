package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"bookstack-backend/internal/engine"
	"bookstack-backend/internal/policy"
)

// Authenticate returns a Fiber middleware that resolves the caller into a
// policy request context. Requests without a token proceed as anonymous;
// the policy layer decides what anonymous callers may do. A present but
// invalid token is still a 401.
func Authenticate(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			c.Locals("user", policy.Anonymous())
			return c.Next()
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return respondUnauthorized(c, "Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return respondUnauthorized(c, "Invalid or expired token")
		}

		c.Locals("user", &policy.RequestContext{
			Subject: claims.Subject,
			Roles:   claims.Roles,
		})

		return c.Next()
	}
}

// RequireAuth rejects anonymous callers.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rctx := GetUser(c)
		if rctx.IsAnonymous() {
			return respondUnauthorized(c, "Missing auth token")
		}
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rctx := GetUser(c)
		if rctx.IsAnonymous() {
			return respondUnauthorized(c, "Missing auth token")
		}
		if !rctx.IsAdmin() {
			appErr := engine.ForbiddenError("Admin access required")
			return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
		}
		return c.Next()
	}
}

// GetUser extracts the policy request context from a Fiber context.
// Returns an anonymous context when the middleware did not run.
func GetUser(c *fiber.Ctx) *policy.RequestContext {
	if rctx, ok := c.Locals("user").(*policy.RequestContext); ok && rctx != nil {
		return rctx
	}
	return policy.Anonymous()
}

func respondUnauthorized(c *fiber.Ctx, msg string) error {
	appErr := engine.UnauthorizedError(msg)
	return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
}
