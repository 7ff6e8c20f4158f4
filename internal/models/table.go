package models

import "time"

type TableStatus string

const (
	TableBlank      TableStatus = "blank"
	TableRunning    TableStatus = "running"
	TablePrinted    TableStatus = "printed"
	TablePaid       TableStatus = "paid"
	TableKOTRunning TableStatus = "kot_running"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableBlank, TableRunning, TablePrinted, TablePaid, TableKOTRunning:
		return true
	}
	return false
}

type Table struct {
	Base
	RestaurantID   string      `gorm:"type:varchar(36);uniqueIndex:idx_table_restaurant_number;not null" json:"restaurantId"`
	TableNumber    string      `gorm:"size:50;uniqueIndex:idx_table_restaurant_number;not null" json:"tableNumber"`
	QRURL          string      `gorm:"size:500" json:"qrUrl"`
	Status         TableStatus `gorm:"size:20;not null;index" json:"status"`
	CurrentOrderID *string     `gorm:"type:varchar(36)" json:"currentOrderId"`
	CustomerName   string      `gorm:"size:100" json:"customerName"`
	CustomerMobile string      `gorm:"size:30" json:"customerMobile"`
	LastActivity   time.Time   `json:"lastActivity"`
	GSTEnabled     bool        `gorm:"not null" json:"gstEnabled"`
	GSTPercentage  float64     `gorm:"not null" json:"gstPercentage"`
}
