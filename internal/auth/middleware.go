package auth

import (
	"errors"

	"qrmenu-backend/internal/config"
	"qrmenu-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxSessionKey      = "session"
	CtxRestaurantIDKey = "restaurant_id"
	CtxRestaurantKey   = "restaurant"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := TokenFromRequest(c)
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
		}

		sess, err := Authenticate(cfg.JWTSecret, raw)
		if err != nil {
			if errors.Is(err, ErrInactiveStaff) {
				return fiber.NewError(fiber.StatusUnauthorized, "Staff account is inactive")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(CtxSessionKey, sess)
		c.Locals(CtxRestaurantIDKey, sess.RestaurantID)
		return c.Next()
	}
}

// OptionalJWT attaches a session when a valid credential is present and
// lets anonymous requests through untouched.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := TokenFromRequest(c); raw != "" {
			if sess, err := Authenticate(cfg.JWTSecret, raw); err == nil {
				c.Locals(CtxSessionKey, sess)
				c.Locals(CtxRestaurantIDKey, sess.RestaurantID)
			}
		}
		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil {
			return fiber.NewError(fiber.StatusForbidden, "Role information missing")
		}

		for _, r := range allowedRoles {
			if r == sess.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "You are not allowed to perform this action")
	}
}

func SessionFrom(c *fiber.Ctx) *Session {
	sess, _ := c.Locals(CtxSessionKey).(*Session)
	return sess
}

// RestaurantID returns the tenant bound to the request, "" when anonymous.
func RestaurantID(c *fiber.Ctx) string {
	id, _ := c.Locals(CtxRestaurantIDKey).(string)
	return id
}

func RestaurantFrom(c *fiber.Ctx) *models.Restaurant {
	r, _ := c.Locals(CtxRestaurantKey).(*models.Restaurant)
	return r
}
