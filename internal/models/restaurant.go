package models

// Restaurant is the tenant root. Slug exists for display and URLs only;
// every tenant-owned row is keyed by RestaurantID.
type Restaurant struct {
	Base
	Name string `gorm:"size:120;not null" json:"name"`
	Slug string `gorm:"size:120;uniqueIndex;not null" json:"slug"`
}
