package staff

import (
	"errors"
	"fmt"
	"strings"

	"qrmenu-backend/internal/audit"
	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateStaffRequest struct {
	Name     string      `json:"name" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,email,max=100"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     models.Role `json:"role" validate:"required,oneof=admin kitchen waiter cashier"`
	Active   *bool       `json:"active"`
}

type UpdateStaffRequest struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string      `json:"email" validate:"omitempty,email,max=100"`
	Password *string      `json:"password" validate:"omitempty,min=6"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=admin kitchen waiter cashier"`
	Active   *bool        `json:"active"`
}

var errEmailTaken = errors.New("email already in use")

func emailTaken(tx *gorm.DB, email, exceptID string) (bool, error) {
	q := tx.Model(&models.Staff{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func findStaff(c *fiber.Ctx) (*models.Staff, error) {
	var member models.Staff
	if err := database.DB.First(&member, "id = ? AND restaurant_id = ?", c.Params("id"), auth.RestaurantID(c)).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Staff member not found")
	}
	return &member, nil
}

// GET /api/restaurants/:restaurantId/staff
func ListStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var list []models.Staff
		if err := database.DB.Where("restaurant_id = ?", auth.RestaurantID(c)).
			Order("name asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Staff could not be listed")
		}
		return c.JSON(list)
	}
}

// POST /api/restaurants/:restaurantId/staff
// New members are active unless the body says otherwise.
func CreateStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStaffRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Password could not be processed")
		}

		member := models.Staff{
			RestaurantID: auth.RestaurantID(c),
			Name:         strings.TrimSpace(body.Name),
			Email:        strings.TrimSpace(strings.ToLower(body.Email)),
			PasswordHash: string(hash),
			Role:         body.Role,
			Active:       true,
		}
		if body.Active != nil {
			member.Active = *body.Active
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			taken, err := emailTaken(tx, member.Email, "")
			if err != nil {
				return err
			}
			if taken {
				return errEmailTaken
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				RestaurantID: member.RestaurantID,
				Actor:        audit.ActorFrom(c),
				EntityType:   "staff",
				EntityID:     member.ID,
				Action:       models.AuditActionCreate,
				Description:  fmt.Sprintf("Staff %s added as %s", member.Name, member.Role),
				After:        member,
			})
		})
		if errors.Is(err, errEmailTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "Email already in use")
		}
		if err != nil {
			zap.L().Error("staff create failed", zap.String("restaurant_id", member.RestaurantID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Staff member could not be created")
		}
		return c.Status(fiber.StatusCreated).JSON(member)
	}
}

// PUT /api/restaurants/:restaurantId/staff/:id
func UpdateStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		member, err := findStaff(c)
		if err != nil {
			return err
		}

		var body UpdateStaffRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before := *member
		changes := map[string]any{}
		if body.Name != nil {
			member.Name = strings.TrimSpace(*body.Name)
			changes["name"] = member.Name
		}
		if body.Email != nil {
			member.Email = strings.TrimSpace(strings.ToLower(*body.Email))
			changes["email"] = member.Email
		}
		if body.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Password could not be processed")
			}
			changes["password_hash"] = string(hash)
		}
		if body.Role != nil {
			changes["role"] = *body.Role
		}
		if body.Active != nil {
			changes["active"] = *body.Active
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if member.Email != before.Email {
				taken, err := emailTaken(tx, member.Email, member.ID)
				if err != nil {
					return err
				}
				if taken {
					return errEmailTaken
				}
			}
			if len(changes) > 0 {
				if err := tx.Model(&models.Staff{}).Where("id = ?", member.ID).Updates(changes).Error; err != nil {
					return err
				}
			}
			if err := tx.First(member, "id = ?", member.ID).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				RestaurantID: member.RestaurantID,
				Actor:        audit.ActorFrom(c),
				EntityType:   "staff",
				EntityID:     member.ID,
				Action:       models.AuditActionUpdate,
				Description:  fmt.Sprintf("Staff %s updated", member.Name),
				Before:       before,
				After:        member,
			})
		})
		if errors.Is(err, errEmailTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "Email already in use")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Staff member could not be updated")
		}
		return c.JSON(member)
	}
}

// DELETE /api/restaurants/:restaurantId/staff/:id
func DeleteStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		member, err := findStaff(c)
		if err != nil {
			return err
		}
		if sess := auth.SessionFrom(c); sess != nil && sess.SubjectID == member.ID {
			return fiber.NewError(fiber.StatusBadRequest, "You cannot remove your own account")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(member).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				RestaurantID: member.RestaurantID,
				Actor:        audit.ActorFrom(c),
				EntityType:   "staff",
				EntityID:     member.ID,
				Action:       models.AuditActionDelete,
				Description:  fmt.Sprintf("Staff %s removed", member.Name),
				Before:       member,
			})
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Staff member could not be deleted")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
