package catalog

import (
	"fmt"
	"strings"

	"qrmenu-backend/internal/audit"
	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateMenuItemRequest struct {
	Name              string  `json:"name" validate:"required,max=150"`
	Description       string  `json:"description" validate:"max=500"`
	Price             float64 `json:"price" validate:"gte=0"`
	Category          string  `json:"category" validate:"max=100"`
	ImageURL          string  `json:"imageUrl" validate:"max=500"`
	Quantity          *int    `json:"quantity" validate:"omitempty,gte=0"`
	LowStockThreshold *int    `json:"lowStockThreshold" validate:"omitempty,gte=0"`
}

type UpdateMenuItemRequest struct {
	Name              *string  `json:"name" validate:"omitempty,min=1,max=150"`
	Description       *string  `json:"description" validate:"omitempty,max=500"`
	Price             *float64 `json:"price" validate:"omitempty,gte=0"`
	Category          *string  `json:"category" validate:"omitempty,max=100"`
	ImageURL          *string  `json:"imageUrl" validate:"omitempty,max=500"`
	Quantity          *int     `json:"quantity" validate:"omitempty,gte=0"`
	LowStockThreshold *int     `json:"lowStockThreshold" validate:"omitempty,gte=0"`
}

type PublicMenuResponse struct {
	Restaurant PublicRestaurant  `json:"restaurant"`
	Categories []string          `json:"categories"`
	Items      []models.MenuItem `json:"items"`
}

type PublicRestaurant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ensureCategory registers a category label the first time an item uses it.
func ensureCategory(tx *gorm.DB, restaurantID, name string) error {
	if name == "" {
		return nil
	}
	cat := models.Category{RestaurantID: restaurantID, Name: name}
	return tx.Where("restaurant_id = ? AND name = ?", restaurantID, name).FirstOrCreate(&cat).Error
}

func findMenuItem(c *fiber.Ctx) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := database.DB.First(&item, "id = ? AND restaurant_id = ?", c.Params("id"), auth.RestaurantID(c)).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Menu item not found")
	}
	return &item, nil
}

// GET /api/restaurants/:restaurantId/menu?category=
func ListMenuHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Where("restaurant_id = ?", auth.RestaurantID(c))
		if cat := c.Query("category"); cat != "" {
			q = q.Where("category = ?", cat)
		}

		var items []models.MenuItem
		if err := q.Order("category asc, name asc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Menu could not be listed")
		}
		return c.JSON(items)
	}
}

// GET /api/restaurants/:restaurantId/menu/low-stock
func LowStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var items []models.MenuItem
		if err := database.DB.
			Where("restaurant_id = ? AND quantity <= low_stock_threshold", auth.RestaurantID(c)).
			Order("quantity asc, name asc").
			Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Low stock items could not be listed")
		}
		return c.JSON(items)
	}
}

// GET /api/restaurants/:restaurantId/menu/:id
func GetMenuItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := findMenuItem(c)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// POST /api/restaurants/:restaurantId/menu
func CreateMenuItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMenuItemRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		restaurantID := auth.RestaurantID(c)
		item := models.MenuItem{
			RestaurantID:      restaurantID,
			Name:              strings.TrimSpace(body.Name),
			Description:       body.Description,
			Price:             body.Price,
			Category:          strings.TrimSpace(body.Category),
			ImageURL:          body.ImageURL,
			Quantity:          models.DefaultMenuQuantity,
			LowStockThreshold: models.DefaultLowStockThreshold,
		}
		if body.Quantity != nil {
			item.Quantity = *body.Quantity
		}
		if body.LowStockThreshold != nil {
			item.LowStockThreshold = *body.LowStockThreshold
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := ensureCategory(tx, restaurantID, item.Category); err != nil {
				return err
			}
			return tx.Create(&item).Error
		})
		if err != nil {
			zap.L().Error("menu item create failed", zap.String("restaurant_id", restaurantID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Menu item could not be created")
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// PUT /api/restaurants/:restaurantId/menu/:id
// Existing orders keep the name and price they captured.
func UpdateMenuItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := findMenuItem(c)
		if err != nil {
			return err
		}

		var body UpdateMenuItemRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		// quantity is only written when asked for; orders decrement it concurrently
		changes := map[string]any{}
		category := item.Category
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			changes["name"] = name
		}
		if body.Description != nil {
			changes["description"] = *body.Description
		}
		if body.Price != nil {
			changes["price"] = *body.Price
		}
		if body.Category != nil {
			category = strings.TrimSpace(*body.Category)
			changes["category"] = category
		}
		if body.ImageURL != nil {
			changes["image_url"] = *body.ImageURL
		}
		if body.Quantity != nil {
			changes["quantity"] = *body.Quantity
		}
		if body.LowStockThreshold != nil {
			changes["low_stock_threshold"] = *body.LowStockThreshold
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if body.Category != nil {
				if err := ensureCategory(tx, item.RestaurantID, category); err != nil {
					return err
				}
			}
			if len(changes) > 0 {
				if err := tx.Model(&models.MenuItem{}).Where("id = ?", item.ID).Updates(changes).Error; err != nil {
					return err
				}
			}
			return tx.First(item, "id = ?", item.ID).Error
		})
		if err != nil {
			zap.L().Error("menu item update failed", zap.String("restaurant_id", item.RestaurantID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Menu item could not be updated")
		}
		return c.JSON(item)
	}
}

// DELETE /api/restaurants/:restaurantId/menu/:id
func DeleteMenuItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := findMenuItem(c)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(item).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				RestaurantID: item.RestaurantID,
				Actor:        audit.ActorFrom(c),
				EntityType:   "menu_item",
				EntityID:     item.ID,
				Action:       models.AuditActionDelete,
				Description:  fmt.Sprintf("Menu item %s deleted", item.Name),
				Before:       item,
			})
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Menu item could not be deleted")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/restaurants/menu/public/:restaurantId
func PublicMenuHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		restaurantID := c.Params("restaurantId")

		var restaurant models.Restaurant
		if err := database.DB.First(&restaurant, "id = ?", restaurantID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Restaurant not found")
		}

		var items []models.MenuItem
		if err := database.DB.Where("restaurant_id = ?", restaurant.ID).
			Order("category asc, name asc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Menu could not be loaded")
		}

		var categories []string
		if err := database.DB.Model(&models.Category{}).Where("restaurant_id = ?", restaurant.ID).
			Order("name asc").Pluck("name", &categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Menu could not be loaded")
		}
		if categories == nil {
			categories = []string{}
		}

		return c.JSON(PublicMenuResponse{
			Restaurant: PublicRestaurant{ID: restaurant.ID, Name: restaurant.Name, Slug: restaurant.Slug},
			Categories: categories,
			Items:      items,
		})
	}
}
