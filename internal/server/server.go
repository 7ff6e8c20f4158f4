package server

import (
	"errors"
	"strings"

	"qrmenu-backend/internal/audit"
	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/catalog"
	"qrmenu-backend/internal/chat"
	"qrmenu-backend/internal/config"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/feedback"
	"qrmenu-backend/internal/kitchen"
	"qrmenu-backend/internal/logger"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/orders"
	"qrmenu-backend/internal/realtime"
	"qrmenu-backend/internal/staff"
	"qrmenu-backend/internal/tables"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	zap.L().Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Unexpected server error",
	})
}

// New builds the application with every route mounted. Public routes are
// registered before the authenticated group so they never reach the JWT
// middleware.
func New(cfg *config.Config, hub *realtime.Hub, responder chat.Responder) *fiber.App {
	if responder == nil {
		responder = chat.KeywordResponder{Suggestions: 3}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		AppName:      "qrmenu-backend",
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	origins := strings.Join(corsOrigins, ",")
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(logger.Middleware(zap.L()))
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		// session cookies cannot be shared with a wildcard origin
		AllowCredentials: origins != "*",
	}))

	// Real-time channel
	app.Use("/ws", realtime.UpgradeMiddleware(cfg))
	app.Get("/ws", realtime.Handler(hub))

	api := app.Group("/api")

	api.Get("/health", HealthHandler())

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))
	api.Post("/auth/logout", auth.LogoutHandler(cfg))
	api.Post("/staff-auth/login", auth.StaffLoginHandler(cfg))
	api.Post("/staff-auth/logout", auth.StaffLogoutHandler(cfg))

	// Guest surface, keyed by restaurant id in the path
	api.Get("/restaurants/menu/public/:restaurantId", catalog.PublicMenuHandler())
	api.Get("/tables/public/:restaurantId/:tableNumber", tables.PublicTableHandler())
	api.Post("/orders/public/:restaurantId", orders.CreatePublicOrderHandler(hub))
	api.Get("/orders/:id", orders.GetPublicOrderHandler())
	api.Post("/feedback/public/:restaurantId", feedback.CreateFeedbackHandler())
	api.Post("/chat/public/:restaurantId", chat.MessageHandler(responder))

	// Comments are open to anonymous visitors
	api.Post("/comments", auth.OptionalJWT(cfg), feedback.CreateCommentHandler())
	api.Get("/comments/menu/:menuItemId", feedback.ListItemCommentsHandler())
	api.Post("/comments/:id/helpful", feedback.MarkHelpfulHandler())

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())
	protected.Get("/staff-auth/me", auth.MeHandler())

	managers := auth.RequireRole(models.RoleOwner, models.RoleAdmin)
	floor := auth.RequireRole(models.RoleOwner, models.RoleAdmin, models.RoleWaiter, models.RoleCashier)

	// Kitchen board, tenant taken from the session
	kitchenRoutes := protected.Group("/kitchen")
	kitchenRoutes.Use(auth.RequireRole(models.RoleOwner, models.RoleAdmin, models.RoleKitchen))
	kitchenRoutes.Get("/orders", kitchen.ListOrdersHandler())
	kitchenRoutes.Put("/orders/:id/status", kitchen.UpdateStatusHandler(hub))

	// Restaurant scoped; :restaurantId must match the session
	r := protected.Group("/restaurants/:restaurantId")
	r.Use(auth.RequireTenant())

	// Categories
	r.Get("/categories", catalog.ListCategoriesHandler())
	r.Post("/categories", managers, catalog.CreateCategoryHandler())
	r.Put("/categories/:id", managers, catalog.UpdateCategoryHandler())
	r.Delete("/categories/:id", managers, catalog.DeleteCategoryHandler())

	// Menu
	r.Get("/menu", catalog.ListMenuHandler())
	r.Get("/menu/low-stock", catalog.LowStockHandler())
	r.Get("/menu/:id", catalog.GetMenuItemHandler())
	r.Post("/menu", managers, catalog.CreateMenuItemHandler())
	r.Put("/menu/:id", managers, catalog.UpdateMenuItemHandler())
	r.Delete("/menu/:id", managers, catalog.DeleteMenuItemHandler())

	// Tables
	r.Get("/tables", tables.ListTablesHandler())
	r.Post("/tables", managers, tables.CreateTableHandler(cfg))
	r.Post("/tables/qr/refresh", managers, tables.RefreshQRHandler(cfg))
	r.Get("/tables/:id", tables.GetTableHandler())
	r.Put("/tables/:id", managers, tables.UpdateTableHandler(cfg))
	r.Put("/tables/:id/status", floor, tables.UpdateTableStatusHandler())
	r.Get("/tables/:id/qr", tables.TableQRHandler(cfg))
	r.Delete("/tables/:id", managers, tables.DeleteTableHandler())

	// Orders
	r.Get("/orders", orders.ListOrdersHandler())
	r.Post("/orders", floor, orders.CreateOrderHandler(hub))
	r.Get("/orders/analytics", managers, orders.AnalyticsHandler())
	r.Get("/orders/export", managers, orders.ExportOrdersHandler())
	r.Get("/orders/:id", orders.GetOrderHandler())
	r.Put("/orders/:id", floor, orders.UpdateOrderHandler(hub))
	r.Put("/orders/:id/status", floor, orders.UpdateOrderStatusHandler(hub))

	// Staff
	r.Get("/staff", managers, staff.ListStaffHandler())
	r.Post("/staff", managers, staff.CreateStaffHandler())
	r.Put("/staff/:id", managers, staff.UpdateStaffHandler())
	r.Delete("/staff/:id", managers, staff.DeleteStaffHandler())

	// Guest voice
	r.Get("/comments", managers, feedback.ListRestaurantCommentsHandler())
	r.Get("/feedback", managers, feedback.ListFeedbackHandler())

	// Audit logs
	r.Get("/audit-logs", managers, audit.ListAuditLogsHandler())

	return app
}

// GET /api/health
func HealthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unavailable",
				"database": "down",
			})
		}
		return c.JSON(fiber.Map{
			"status":   "ok",
			"database": "up",
		})
	}
}
