package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"qrmenu-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotEligible      = errors.New("order is not eligible for a review of this item")
)

// reviewable are the order states after which a dish can be rated.
var reviewable = []models.OrderStatus{models.OrderServed, models.OrderPaid, models.OrderCompleted}

type CommentInput struct {
	MenuItemID string
	UserID     *string
	OrderID    *string
	Text       string
	Nickname   string
	Rating     int
}

// AddComment stores a rating for a menu item. When an order is named it
// must contain the item and have been served.
func AddComment(ctx context.Context, db *gorm.DB, in CommentInput) (*models.Comment, error) {
	db = db.WithContext(ctx)

	var item models.MenuItem
	if err := db.Select("id", "restaurant_id").First(&item, "id = ?", in.MenuItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}

	if in.OrderID != nil && *in.OrderID != "" {
		var count int64
		err := db.Model(&models.OrderItem{}).
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("orders.id = ? AND orders.restaurant_id = ? AND orders.status IN ? AND order_items.menu_item_id = ?",
				*in.OrderID, item.RestaurantID, reviewable, item.ID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrNotEligible
		}
	} else {
		in.OrderID = nil
	}

	restaurantID := item.RestaurantID
	comment := models.Comment{
		RestaurantID: &restaurantID,
		MenuItemID:   item.ID,
		UserID:       in.UserID,
		OrderID:      in.OrderID,
		Text:         strings.TrimSpace(in.Text),
		Nickname:     strings.TrimSpace(in.Nickname),
		Rating:       in.Rating,
	}
	if err := db.Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("save comment: %w", err)
	}
	return &comment, nil
}

// MarkHelpful bumps a comment's helpful count in place.
func MarkHelpful(ctx context.Context, db *gorm.DB, id string) (*models.Comment, error) {
	res := db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).
		UpdateColumn("helpful_count", gorm.Expr("helpful_count + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrCommentNotFound
	}

	var comment models.Comment
	if err := db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// Record stores customer feedback. Unknown categories fall back to food.
func Record(db *gorm.DB, restaurantID, message string, category models.FeedbackCategory, tableNumber string) (*models.Feedback, error) {
	if category != models.FeedbackTech {
		category = models.FeedbackFood
	}
	fb := models.Feedback{
		RestaurantID: restaurantID,
		Message:      strings.TrimSpace(message),
		Category:     category,
		TableNumber:  strings.TrimSpace(tableNumber),
	}
	if err := db.Create(&fb).Error; err != nil {
		return nil, fmt.Errorf("save feedback: %w", err)
	}
	return &fb, nil
}
