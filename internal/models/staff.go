package models

import "time"

type Staff struct {
	Base
	RestaurantID string     `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Email        string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         Role       `gorm:"size:20;not null" json:"role"`
	Active       bool       `gorm:"not null" json:"active"`
	LastLogin    *time.Time `json:"lastLogin"`
}

func (Staff) TableName() string { return "staff" }
