package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionStatus AuditAction = "status"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	RestaurantID string `gorm:"type:varchar(36);index;not null" json:"restaurantId"`

	// who did it: owner, staff or customer
	ActorKind string `gorm:"size:20" json:"actorKind"`
	ActorID   string `gorm:"type:varchar(36)" json:"actorId"`
	ActorName string `gorm:"size:100" json:"actorName"`

	// e.g. "order", "table", "menu_item"
	EntityType string `gorm:"size:50;index" json:"entityType"`
	EntityID   string `gorm:"type:varchar(36);index" json:"entityId"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	BeforeData string `gorm:"type:text" json:"beforeData"`
	AfterData  string `gorm:"type:text" json:"afterData"`
}
