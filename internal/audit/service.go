package audit

import (
	"encoding/json"
	"fmt"

	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Actor identifies who triggered a change.
type Actor struct {
	Kind string // owner, staff or customer
	ID   string
	Name string
}

var Customer = Actor{Kind: "customer", Name: "customer"}

// ActorFrom derives the actor of a request; anonymous requests are customers.
func ActorFrom(c *fiber.Ctx) Actor {
	sess := auth.SessionFrom(c)
	if sess == nil {
		return Customer
	}
	return Actor{Kind: string(sess.Kind), ID: sess.SubjectID, Name: sess.Name}
}

type LogOptions struct {
	RestaurantID string
	Actor        Actor
	EntityType   string
	EntityID     string
	Action       models.AuditAction
	Description  string
	Before       any
	After        any
}

// WriteLog stores an entry using tx, so it commits or rolls back together
// with the change it describes.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		RestaurantID: opts.RestaurantID,
		ActorKind:    opts.Actor.Kind,
		ActorID:      opts.Actor.ID,
		ActorName:    opts.Actor.Name,
		EntityType:   opts.EntityType,
		EntityID:     opts.EntityID,
		Action:       opts.Action,
		Description:  opts.Description,
		BeforeData:   beforeStr,
		AfterData:    afterStr,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log not saved: %w", err)
	}
	return nil
}
