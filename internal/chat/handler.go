package chat

import (
	"strings"

	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/feedback"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type MessageRequest struct {
	Message     string `json:"message" validate:"required,max=1000"`
	TableNumber string `json:"tableNumber" validate:"max=50"`
}

// Suggestion is a marker resolved against the live menu.
type Suggestion struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Available  bool    `json:"available"`
}

type MessageResponse struct {
	Reply            string       `json:"reply"`
	Suggestions      []Suggestion `json:"suggestions"`
	FeedbackRecorded bool         `json:"feedbackRecorded"`
}

// Resolve matches reply markers to menu items by name. The menu price wins
// over whatever price the reply quoted; unknown names are dropped.
func Resolve(markers []Marker, menu []models.MenuItem) []Suggestion {
	byName := make(map[string]models.MenuItem, len(menu))
	for _, it := range menu {
		byName[strings.ToLower(strings.TrimSpace(it.Name))] = it
	}

	out := make([]Suggestion, 0, len(markers))
	for _, m := range markers {
		it, ok := byName[strings.ToLower(m.Name)]
		if !ok {
			continue
		}
		out = append(out, Suggestion{
			MenuItemID: it.ID,
			Name:       it.Name,
			Price:      it.Price,
			Available:  it.Quantity > 0,
		})
	}
	return out
}

// POST /api/chat/public/:restaurantId
func MessageHandler(responder Responder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var restaurant models.Restaurant
		if err := database.DB.First(&restaurant, "id = ?", c.Params("restaurantId")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Restaurant not found")
		}

		var body MessageRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		var menu []models.MenuItem
		if err := database.DB.Where("restaurant_id = ?", restaurant.ID).Order("name asc").Find(&menu).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Menu could not be loaded")
		}

		res := MessageResponse{Suggestions: []Suggestion{}}
		if complaint, category := DetectComplaint(body.Message); complaint {
			if _, err := feedback.Record(database.DB, restaurant.ID, body.Message, category, body.TableNumber); err != nil {
				zap.L().Warn("chat complaint not stored", zap.String("restaurant_id", restaurant.ID), zap.Error(err))
			} else {
				res.FeedbackRecorded = true
			}
		}

		reply, err := responder.Reply(c.UserContext(), Request{
			RestaurantName: restaurant.Name,
			Message:        body.Message,
			Menu:           menu,
		})
		if err != nil {
			zap.L().Error("chat responder failed", zap.String("restaurant_id", restaurant.ID), zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "Assistant is unavailable, please try again")
		}

		res.Reply = reply
		res.Suggestions = Resolve(ParseOrderMarkers(reply), menu)
		return c.JSON(res)
	}
}
