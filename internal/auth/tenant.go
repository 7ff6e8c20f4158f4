package auth

import (
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RequireTenant binds a restaurant-scoped route to the caller's tenant.
// It must run after JWTMiddleware. A :restaurantId that differs from the
// session's tenant is refused before any handler touches the database.
func RequireTenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := RestaurantID(c)
		if tenantID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
		}

		if pathID := c.Params("restaurantId"); pathID != "" && pathID != tenantID {
			return fiber.NewError(fiber.StatusForbidden, "Access to this restaurant is not allowed")
		}

		var restaurant models.Restaurant
		if err := database.DB.First(&restaurant, "id = ?", tenantID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Restaurant for this session no longer exists")
		}

		c.Locals(CtxRestaurantKey, &restaurant)
		return c.Next()
	}
}
