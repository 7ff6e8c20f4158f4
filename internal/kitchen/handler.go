package kitchen

import (
	"qrmenu-backend/internal/audit"
	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/orders"
	"qrmenu-backend/internal/realtime"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Statuses shown on the kitchen board.
var Statuses = []models.OrderStatus{
	models.OrderPending,
	models.OrderPreparing,
	models.OrderReady,
	models.OrderServed,
}

// kitchenTargets are the statuses kitchen staff may set themselves.
var kitchenTargets = map[models.OrderStatus]bool{
	models.OrderPreparing: true,
	models.OrderReady:     true,
	models.OrderServed:    true,
}

// CanSet reports whether role may move an order to status from the
// kitchen board. Billing states stay with admins and the owner.
func CanSet(role models.Role, status models.OrderStatus) bool {
	switch role {
	case models.RoleOwner, models.RoleAdmin:
		return true
	case models.RoleKitchen:
		return kitchenTargets[status]
	}
	return false
}

// GET /api/kitchen/orders
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := orders.List(c.UserContext(), database.DB, auth.RestaurantID(c), orders.Filter{
			Statuses: Statuses,
			Oldest:   true,
		})
		if err != nil {
			return orders.HTTPError(err)
		}
		return c.JSON(list)
	}
}

// PUT /api/kitchen/orders/:id/status
func UpdateStatusHandler(hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body orders.StatusRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if !body.Status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, orders.ErrInvalidStatus.Error())
		}

		sess := auth.SessionFrom(c)
		if sess == nil || !CanSet(sess.Role, body.Status) {
			return fiber.NewError(fiber.StatusForbidden, "Kitchen staff can only mark orders preparing, ready or served")
		}

		order, changed, err := orders.UpdateStatus(c.UserContext(), database.DB, sess.RestaurantID, c.Params("id"), body.Status, audit.ActorFrom(c))
		if err != nil {
			return orders.HTTPError(err)
		}
		if changed {
			orders.Notify(c.UserContext(), hub, realtime.EventStatusUpdated, order)
		}
		return c.JSON(order)
	}
}
