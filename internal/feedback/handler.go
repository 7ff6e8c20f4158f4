package feedback

import (
	"errors"
	"strings"

	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CommentRequest struct {
	MenuItemID string  `json:"menuItemId" validate:"required"`
	OrderID    *string `json:"orderId"`
	Text       string  `json:"text" validate:"required,max=1000"`
	Nickname   string  `json:"nickname" validate:"max=60"`
	Rating     int     `json:"rating" validate:"required,gte=1,lte=5"`
}

type FeedbackRequest struct {
	Message     string `json:"message" validate:"required,max=1000"`
	Category    string `json:"category" validate:"omitempty,oneof=tech food"`
	TableNumber string `json:"tableNumber" validate:"max=50"`
}

// ==============================
// Comments
// ==============================

// POST /api/comments
// Anonymous visitors may comment; a signed-in owner is recorded as author.
func CreateCommentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CommentRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if strings.TrimSpace(body.Text) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "text is required")
		}

		in := CommentInput{
			MenuItemID: body.MenuItemID,
			OrderID:    body.OrderID,
			Text:       body.Text,
			Nickname:   body.Nickname,
			Rating:     body.Rating,
		}
		if sess := auth.SessionFrom(c); sess != nil && sess.Kind == auth.KindOwner {
			uid := sess.SubjectID
			in.UserID = &uid
		}

		comment, err := AddComment(c.UserContext(), database.DB, in)
		switch {
		case errors.Is(err, ErrMenuItemNotFound):
			return fiber.NewError(fiber.StatusNotFound, "Menu item not found")
		case errors.Is(err, ErrNotEligible):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			zap.L().Error("comment create failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Comment could not be saved")
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	}
}

// GET /api/comments/menu/:menuItemId?sort=newest|helpful
func ListItemCommentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Where("menu_item_id = ?", c.Params("menuItemId"))
		switch c.Query("sort", "newest") {
		case "newest":
			q = q.Order("created_at desc")
		case "helpful":
			q = q.Order("helpful_count desc").Order("created_at desc")
		default:
			return fiber.NewError(fiber.StatusBadRequest, "sort must be newest or helpful")
		}

		var list []models.Comment
		if err := q.Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Comments could not be listed")
		}
		return c.JSON(list)
	}
}

// POST /api/comments/:id/helpful
func MarkHelpfulHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		comment, err := MarkHelpful(c.UserContext(), database.DB, c.Params("id"))
		if errors.Is(err, ErrCommentNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Comment not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Comment could not be updated")
		}
		return c.JSON(comment)
	}
}

// GET /api/restaurants/:restaurantId/comments?menuItemId=
func ListRestaurantCommentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Where("restaurant_id = ?", auth.RestaurantID(c))
		if id := c.Query("menuItemId"); id != "" {
			q = q.Where("menu_item_id = ?", id)
		}

		var list []models.Comment
		if err := q.Order("created_at desc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Comments could not be listed")
		}
		return c.JSON(list)
	}
}

// ==============================
// Feedback
// ==============================

// POST /api/feedback/public/:restaurantId
func CreateFeedbackHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var restaurant models.Restaurant
		if err := database.DB.Select("id").First(&restaurant, "id = ?", c.Params("restaurantId")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Restaurant not found")
		}

		var body FeedbackRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if strings.TrimSpace(body.Message) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "message is required")
		}

		fb, err := Record(database.DB, restaurant.ID, body.Message, models.FeedbackCategory(body.Category), body.TableNumber)
		if err != nil {
			zap.L().Error("feedback create failed", zap.String("restaurant_id", restaurant.ID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Feedback could not be saved")
		}
		return c.Status(fiber.StatusCreated).JSON(fb)
	}
}

// GET /api/restaurants/:restaurantId/feedback?category=tech|food
func ListFeedbackHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Where("restaurant_id = ?", auth.RestaurantID(c))
		if cat := c.Query("category"); cat != "" {
			q = q.Where("category = ?", cat)
		}

		var list []models.Feedback
		if err := q.Order("created_at desc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Feedback could not be listed")
		}
		return c.JSON(list)
	}
}
