package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"qrmenu-backend/internal/config"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	RestaurantName string `json:"restaurantName" validate:"required,max=120"`
	Slug           string `json:"slug" validate:"omitempty,max=120"`
	Name           string `json:"name" validate:"max=100"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(s string) string {
	s = slugCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(s, "-")
}

// uniqueSlug appends -2, -3, ... until the slug is free.
func uniqueSlug(tx *gorm.DB, base string) (string, error) {
	if base == "" {
		base = "restaurant"
	}
	slug := base
	for i := 2; i < 1000; i++ {
		var count int64
		if err := tx.Model(&models.Restaurant{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", errors.New("no free slug")
}

func setSessionCookie(c *fiber.Ctx, cfg *config.Config, name, value string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx, cfg *config.Config, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// POST /api/auth/register
func RegisterHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.RestaurantName = strings.TrimSpace(body.RestaurantName)

		var existing int64
		if err := database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&existing).Error; err != nil {
			zap.L().Error("registration email check failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create restaurant")
		}
		if existing > 0 {
			return fiber.NewError(fiber.StatusConflict, "This email is already registered")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		var restaurant models.Restaurant
		var user models.User
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			base := Slugify(body.Slug)
			if base == "" {
				base = Slugify(body.RestaurantName)
			}
			slug, err := uniqueSlug(tx, base)
			if err != nil {
				return err
			}

			restaurant = models.Restaurant{Name: body.RestaurantName, Slug: slug}
			if err := tx.Create(&restaurant).Error; err != nil {
				return err
			}

			user = models.User{
				RestaurantID: restaurant.ID,
				Name:         strings.TrimSpace(body.Name),
				Email:        body.Email,
				PasswordHash: string(hash),
			}
			return tx.Create(&user).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent registration took the email or slug
			return fiber.NewError(fiber.StatusConflict, "This email or restaurant address is already registered")
		}
		if err != nil {
			zap.L().Error("registration failed", zap.String("email", body.Email), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create restaurant")
		}

		token, err := issueOwnerToken(c, cfg, &user)
		if err != nil {
			return err
		}

		zap.L().Info("restaurant registered", zap.String("restaurant_id", restaurant.ID), zap.String("slug", restaurant.Slug))
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token":      token,
			"restaurant": restaurant,
			"user":       user,
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		if err := database.Ping(c.UserContext()); err != nil {
			zap.L().Error("login refused, database unavailable", zap.Error(err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "Service temporarily unavailable, please try again")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}

		var restaurant models.Restaurant
		if err := database.DB.First(&restaurant, "id = ?", user.RestaurantID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Restaurant for this account no longer exists")
		}

		token, err := issueOwnerToken(c, cfg, &user)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"token":      token,
			"restaurant": restaurant,
			"user":       user,
		})
	}
}

func issueOwnerToken(c *fiber.Ctx, cfg *config.Config, user *models.User) (string, error) {
	token, err := GenerateToken(cfg.JWTSecret, JWTCustomClaims{
		Kind:         KindOwner,
		SubjectID:    user.ID,
		RestaurantID: user.RestaurantID,
		Email:        user.Email,
		Role:         models.RoleOwner,
	}, cfg.OwnerSessionTTL)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "Could not create token")
	}
	setSessionCookie(c, cfg, OwnerCookie, token, cfg.OwnerSessionTTL)
	return token, nil
}

// POST /api/auth/logout
func LogoutHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clearSessionCookie(c, cfg, OwnerCookie)
		return c.JSON(fiber.Map{"message": "Logged out"})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
		}

		var restaurant models.Restaurant
		if err := database.DB.First(&restaurant, "id = ?", sess.RestaurantID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Restaurant not found")
		}

		response := fiber.Map{
			"kind":       sess.Kind,
			"role":       sess.Role,
			"restaurant": restaurant,
		}

		switch sess.Kind {
		case KindOwner:
			var user models.User
			if err := database.DB.First(&user, "id = ?", sess.SubjectID).Error; err == nil {
				response["user"] = user
			}
		case KindStaff:
			var member models.Staff
			if err := database.DB.First(&member, "id = ?", sess.SubjectID).Error; err == nil {
				response["staff"] = member
			}
		}

		return c.JSON(response)
	}
}
