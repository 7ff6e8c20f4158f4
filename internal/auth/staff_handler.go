package auth

import (
	"strings"
	"time"

	"qrmenu-backend/internal/config"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// POST /api/staff-auth/login
func StaffLoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		if err := database.Ping(c.UserContext()); err != nil {
			zap.L().Error("staff login refused, database unavailable", zap.Error(err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "Service temporarily unavailable, please try again")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var member models.Staff
		if err := database.DB.Where("email = ?", body.Email).First(&member).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}
		if !member.Active {
			return fiber.NewError(fiber.StatusForbidden, "Staff account is inactive")
		}

		token, err := GenerateToken(cfg.JWTSecret, JWTCustomClaims{
			Kind:         KindStaff,
			SubjectID:    member.ID,
			RestaurantID: member.RestaurantID,
			Email:        member.Email,
			Role:         member.Role,
		}, cfg.StaffSessionTTL)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create token")
		}

		now := time.Now()
		if err := database.DB.Model(&member).Update("last_login", now).Error; err != nil {
			zap.L().Warn("could not stamp staff last login", zap.String("staff_id", member.ID), zap.Error(err))
		}
		member.LastLogin = &now

		setSessionCookie(c, cfg, StaffCookie, token, cfg.StaffSessionTTL)
		return c.JSON(fiber.Map{
			"token": token,
			"staff": member,
		})
	}
}

// POST /api/staff-auth/logout
func StaffLogoutHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clearSessionCookie(c, cfg, StaffCookie)
		return c.JSON(fiber.Map{"message": "Logged out"})
	}
}
