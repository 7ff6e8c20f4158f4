package models

const (
	DefaultMenuQuantity      = 100
	DefaultLowStockThreshold = 50
)

type Category struct {
	Base
	RestaurantID string `gorm:"type:varchar(36);uniqueIndex:idx_category_restaurant_name;not null" json:"restaurantId"`
	Name         string `gorm:"size:100;uniqueIndex:idx_category_restaurant_name;not null" json:"name"`
}

func (Category) TableName() string { return "categories" }

type MenuItem struct {
	Base
	RestaurantID      string  `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	Name              string  `gorm:"size:150;not null" json:"name"`
	Description       string  `gorm:"size:500" json:"description"`
	Price             float64 `gorm:"not null" json:"price"`
	Category          string  `gorm:"size:100;index" json:"category"`
	ImageURL          string  `gorm:"size:500" json:"imageUrl"`
	Quantity          int     `gorm:"not null" json:"quantity"`
	LowStockThreshold int     `gorm:"not null" json:"lowStockThreshold"`
}

func (m MenuItem) LowStock() bool { return m.Quantity <= m.LowStockThreshold }
