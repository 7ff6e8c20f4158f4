package catalog

import (
	"errors"
	"strings"

	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func categoryExists(db *gorm.DB, restaurantID, name, exceptID string) (bool, error) {
	q := db.Model(&models.Category{}).Where("restaurant_id = ? AND name = ?", restaurantID, name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

// GET /api/restaurants/:restaurantId/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.Category
		if err := database.DB.Where("restaurant_id = ?", auth.RestaurantID(c)).
			Order("name asc").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Categories could not be listed")
		}
		return c.JSON(categories)
	}
}

// POST /api/restaurants/:restaurantId/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		restaurantID := auth.RestaurantID(c)
		exists, err := categoryExists(database.DB, restaurantID, body.Name, "")
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Category could not be created")
		}
		if exists {
			return fiber.NewError(fiber.StatusConflict, "Category already exists")
		}

		cat := models.Category{RestaurantID: restaurantID, Name: body.Name}
		if err := database.DB.Create(&cat).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Category already exists")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Category could not be created")
		}
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/restaurants/:restaurantId/categories/:id
// Renaming carries the new label over to the menu items using it.
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		restaurantID := auth.RestaurantID(c)

		var cat models.Category
		if err := database.DB.First(&cat, "id = ? AND restaurant_id = ?", c.Params("id"), restaurantID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}

		var body CategoryRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if name == cat.Name {
			return c.JSON(cat)
		}

		exists, err := categoryExists(database.DB, restaurantID, name, cat.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Category could not be updated")
		}
		if exists {
			return fiber.NewError(fiber.StatusConflict, "Category already exists")
		}

		oldName := cat.Name
		cat.Name = name
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&cat).Update("name", name).Error; err != nil {
				return err
			}
			return tx.Model(&models.MenuItem{}).
				Where("restaurant_id = ? AND category = ?", restaurantID, oldName).
				Update("category", name).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "Category already exists")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Category could not be updated")
		}
		return c.JSON(cat)
	}
}

var errCategoryInUse = errors.New("category in use")

// DELETE /api/restaurants/:restaurantId/categories/:id
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		restaurantID := auth.RestaurantID(c)

		var cat models.Category
		if err := database.DB.First(&cat, "id = ? AND restaurant_id = ?", c.Params("id"), restaurantID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.MenuItem{}).
				Where("restaurant_id = ? AND category = ?", restaurantID, cat.Name).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return errCategoryInUse
			}
			return tx.Delete(&cat).Error
		})
		if errors.Is(err, errCategoryInUse) {
			return fiber.NewError(fiber.StatusConflict, "Category still has menu items, move or delete them first")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Category could not be deleted")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
