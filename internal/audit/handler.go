package audit

import (
	"strconv"

	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/restaurants/:restaurantId/audit-logs?entity_type=order&entity_id=...&limit=100
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		restaurantID := auth.RestaurantID(c)

		dbq := database.DB.Model(&models.AuditLog{}).Where("restaurant_id = ?", restaurantID)

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if entityID := c.Query("entity_id"); entityID != "" {
			dbq = dbq.Where("entity_id = ?", entityID)
		}

		limit := 200
		if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l < limit {
			limit = l
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list audit logs")
		}
		return c.JSON(logs)
	}
}
