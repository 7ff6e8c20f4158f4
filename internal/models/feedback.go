package models

// Comment is a rating left on a menu item. Anonymous authors use Nickname.
type Comment struct {
	Base
	RestaurantID *string `gorm:"type:varchar(36);index" json:"restaurantId"`
	MenuItemID   string  `gorm:"type:varchar(36);index;not null" json:"menuItemId"`
	UserID       *string `gorm:"type:varchar(36)" json:"userId"`
	OrderID      *string `gorm:"type:varchar(36)" json:"orderId"`
	Text         string  `gorm:"size:1000;not null" json:"text"`
	Nickname     string  `gorm:"size:60" json:"nickname"`
	Rating       int     `gorm:"not null" json:"rating"`
	HelpfulCount int     `gorm:"not null;default:0" json:"helpfulCount"`
}

type FeedbackCategory string

const (
	FeedbackTech FeedbackCategory = "tech"
	FeedbackFood FeedbackCategory = "food"
)

type Feedback struct {
	Base
	RestaurantID string           `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	Message      string           `gorm:"size:1000;not null" json:"message"`
	Category     FeedbackCategory `gorm:"size:10;not null" json:"category"`
	TableNumber  string           `gorm:"size:50" json:"tableNumber"`
}

func (Feedback) TableName() string { return "feedback" }
