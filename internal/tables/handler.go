package tables

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"qrmenu-backend/internal/audit"
	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/config"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateTableRequest struct {
	TableNumber   string  `json:"tableNumber" validate:"required,max=50"`
	GSTEnabled    bool    `json:"gstEnabled"`
	GSTPercentage float64 `json:"gstPercentage" validate:"gte=0,lte=100"`
}

type UpdateTableRequest struct {
	TableNumber   *string  `json:"tableNumber" validate:"omitempty,min=1,max=50"`
	GSTEnabled    *bool    `json:"gstEnabled"`
	GSTPercentage *float64 `json:"gstPercentage" validate:"omitempty,gte=0,lte=100"`
}

type StatusRequest struct {
	Status         *models.TableStatus `json:"status"`
	CustomerName   *string             `json:"customerName" validate:"omitempty,max=100"`
	CustomerMobile *string             `json:"customerMobile" validate:"omitempty,max=30"`
	GSTEnabled     *bool               `json:"gstEnabled"`
	GSTPercentage  *float64            `json:"gstPercentage" validate:"omitempty,gte=0,lte=100"`
}

type QRResponse struct {
	TableID     string `json:"tableId"`
	TableNumber string `json:"tableNumber"`
	QRURL       string `json:"qrUrl"`
}

type PublicTableResponse struct {
	TableNumber   string             `json:"tableNumber"`
	Status        models.TableStatus `json:"status"`
	GSTEnabled    bool               `json:"gstEnabled"`
	GSTPercentage float64            `json:"gstPercentage"`
}

var (
	errTableExists   = errors.New("table number already exists")
	errTableOccupied = errors.New("table has an open order")
)

func numberTaken(db *gorm.DB, restaurantID, number, exceptID string) (bool, error) {
	q := db.Model(&models.Table{}).Where("restaurant_id = ? AND table_number = ?", restaurantID, number)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func findTable(c *fiber.Ctx) (*models.Table, error) {
	var t models.Table
	if err := database.DB.First(&t, "id = ? AND restaurant_id = ?", c.Params("id"), auth.RestaurantID(c)).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Table not found")
	}
	return &t, nil
}

// hasOpenOrder reports whether the table's current order is still open.
func hasOpenOrder(db *gorm.DB, t *models.Table) (bool, error) {
	if t.CurrentOrderID == nil {
		return false, nil
	}
	var count int64
	err := db.Model(&models.Order{}).
		Where("id = ? AND status <> ?", *t.CurrentOrderID, models.OrderCompleted).
		Count(&count).Error
	return count > 0, err
}

// GET /api/restaurants/:restaurantId/tables
func ListTablesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var list []models.Table
		if err := database.DB.Where("restaurant_id = ?", auth.RestaurantID(c)).
			Order("table_number asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tables could not be listed")
		}
		return c.JSON(list)
	}
}

// GET /api/restaurants/:restaurantId/tables/:id
func GetTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := findTable(c)
		if err != nil {
			return err
		}
		return c.JSON(t)
	}
}

// POST /api/restaurants/:restaurantId/tables
func CreateTableHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTableRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		number := strings.TrimSpace(body.TableNumber)
		if number == "" {
			return fiber.NewError(fiber.StatusBadRequest, "tableNumber is required")
		}

		restaurantID := auth.RestaurantID(c)
		t := models.Table{
			RestaurantID:  restaurantID,
			TableNumber:   number,
			QRURL:         QRURL(cfg.FrontendURL, restaurantID, number),
			Status:        models.TableBlank,
			LastActivity:  time.Now(),
			GSTEnabled:    body.GSTEnabled,
			GSTPercentage: body.GSTPercentage,
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			taken, err := numberTaken(tx, restaurantID, number, "")
			if err != nil {
				return err
			}
			if taken {
				return errTableExists
			}
			return tx.Create(&t).Error
		})
		if errors.Is(err, errTableExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "Table number already exists")
		}
		if err != nil {
			zap.L().Error("table create failed", zap.String("restaurant_id", restaurantID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Table could not be created")
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

// PUT /api/restaurants/:restaurantId/tables/:id
// Renumbering also rewrites the QR link. Only supplied columns are written,
// so an order placed meanwhile keeps its hold on the table.
func UpdateTableHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := findTable(c)
		if err != nil {
			return err
		}

		var body UpdateTableRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		changes := map[string]any{"last_activity": time.Now()}
		var number string
		if body.TableNumber != nil {
			number = strings.TrimSpace(*body.TableNumber)
			if number == "" {
				return fiber.NewError(fiber.StatusBadRequest, "tableNumber cannot be empty")
			}
			changes["table_number"] = number
			changes["qr_url"] = QRURL(cfg.FrontendURL, t.RestaurantID, number)
		}
		if body.GSTEnabled != nil {
			changes["gst_enabled"] = *body.GSTEnabled
		}
		if body.GSTPercentage != nil {
			changes["gst_percentage"] = *body.GSTPercentage
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if number != "" {
				taken, err := numberTaken(tx, t.RestaurantID, number, t.ID)
				if err != nil {
					return err
				}
				if taken {
					return errTableExists
				}
			}
			if err := tx.Model(&models.Table{}).Where("id = ?", t.ID).Updates(changes).Error; err != nil {
				return err
			}
			return tx.First(t, "id = ?", t.ID).Error
		})
		if errors.Is(err, errTableExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "Table number already exists")
		}
		if err != nil {
			zap.L().Error("table update failed", zap.String("table_id", t.ID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Table could not be updated")
		}
		return c.JSON(t)
	}
}

// PUT /api/restaurants/:restaurantId/tables/:id/status
// Setting blank by hand releases the table and its customer fields.
func UpdateTableStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := findTable(c)
		if err != nil {
			return err
		}

		var body StatusRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if body.Status != nil && !body.Status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid table status")
		}

		changes := map[string]any{"last_activity": time.Now()}
		if body.Status != nil {
			changes["status"] = *body.Status
			if *body.Status == models.TableBlank {
				changes["current_order_id"] = nil
				changes["customer_name"] = ""
				changes["customer_mobile"] = ""
			}
		}
		if body.CustomerName != nil {
			changes["customer_name"] = *body.CustomerName
		}
		if body.CustomerMobile != nil {
			changes["customer_mobile"] = *body.CustomerMobile
		}
		if body.GSTEnabled != nil {
			changes["gst_enabled"] = *body.GSTEnabled
		}
		if body.GSTPercentage != nil {
			changes["gst_percentage"] = *body.GSTPercentage
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var before models.Table
			if err := tx.First(&before, "id = ?", t.ID).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Table{}).Where("id = ?", t.ID).Updates(changes).Error; err != nil {
				return err
			}
			if err := tx.First(t, "id = ?", t.ID).Error; err != nil {
				return err
			}
			if before.Status == t.Status {
				return nil
			}
			return audit.WriteLog(tx, audit.LogOptions{
				RestaurantID: t.RestaurantID,
				Actor:        audit.ActorFrom(c),
				EntityType:   "table",
				EntityID:     t.ID,
				Action:       models.AuditActionStatus,
				Description:  fmt.Sprintf("Table %s: %s -> %s", t.TableNumber, before.Status, t.Status),
				Before:       map[string]any{"status": before.Status},
				After:        map[string]any{"status": t.Status},
			})
		})
		if err != nil {
			zap.L().Error("table status update failed", zap.String("table_id", t.ID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Table could not be updated")
		}
		return c.JSON(t)
	}
}

// GET /api/restaurants/:restaurantId/tables/:id/qr
func TableQRHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := findTable(c)
		if err != nil {
			return err
		}
		link := t.QRURL
		if link == "" {
			link = QRURL(cfg.FrontendURL, t.RestaurantID, t.TableNumber)
		}
		return c.JSON(QRResponse{TableID: t.ID, TableNumber: t.TableNumber, QRURL: link})
	}
}

// POST /api/restaurants/:restaurantId/tables/qr/refresh
func RefreshQRHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := RefreshQRURLs(database.DB, cfg.FrontendURL, auth.RestaurantID(c))
		if err != nil {
			zap.L().Error("qr refresh failed", zap.String("restaurant_id", auth.RestaurantID(c)), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "QR links could not be updated")
		}
		return c.JSON(fiber.Map{"updated": n})
	}
}

// DELETE /api/restaurants/:restaurantId/tables/:id
// Refused while the table still holds an open order. Past orders keep
// their table number.
func DeleteTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := findTable(c)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			open, err := hasOpenOrder(tx, t)
			if err != nil {
				return err
			}
			if open {
				return errTableOccupied
			}
			if err := tx.Delete(t).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				RestaurantID: t.RestaurantID,
				Actor:        audit.ActorFrom(c),
				EntityType:   "table",
				EntityID:     t.ID,
				Action:       models.AuditActionDelete,
				Description:  fmt.Sprintf("Table %s deleted", t.TableNumber),
				Before:       t,
			})
		})
		if errors.Is(err, errTableOccupied) {
			return fiber.NewError(fiber.StatusConflict, "Table has an open order, complete it first")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Table could not be deleted")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/tables/public/:restaurantId/:tableNumber
func PublicTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var t models.Table
		if err := database.DB.First(&t, "restaurant_id = ? AND table_number = ?",
			c.Params("restaurantId"), c.Params("tableNumber")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Table not found")
		}
		return c.JSON(PublicTableResponse{
			TableNumber:   t.TableNumber,
			Status:        t.Status,
			GSTEnabled:    t.GSTEnabled,
			GSTPercentage: t.GSTPercentage,
		})
	}
}
