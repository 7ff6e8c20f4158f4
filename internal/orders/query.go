package orders

import (
	"context"
	"errors"
	"time"

	"qrmenu-backend/internal/models"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Filter narrows an order listing. Zero values are ignored.
type Filter struct {
	Status      models.OrderStatus
	Statuses    []models.OrderStatus
	TableID     string
	TableNumber string
	From        time.Time // inclusive
	To          time.Time // exclusive
	Oldest      bool
	Limit       int
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
}

// Get loads an order by id. restaurantID may be empty for the public
// lookup, where the unguessable id is the only key.
func Get(ctx context.Context, db *gorm.DB, restaurantID, orderID string) (*models.Order, error) {
	q := preloadItems(db.WithContext(ctx)).Where("id = ?", orderID)
	if restaurantID != "" {
		q = q.Where("restaurant_id = ?", restaurantID)
	}

	var o models.Order
	if err := q.First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func List(ctx context.Context, db *gorm.DB, restaurantID string, f Filter) ([]models.Order, error) {
	q := preloadItems(db.WithContext(ctx)).Where("restaurant_id = ?", restaurantID)

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.TableID != "" {
		q = q.Where("table_id = ?", f.TableID)
	}
	if f.TableNumber != "" {
		q = q.Where("table_number = ?", f.TableNumber)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	if f.Oldest {
		q = q.Order("created_at ASC")
	} else {
		q = q.Order("created_at DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var list []models.Order
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// DayRange returns [start of day, start of next day) in loc.
func DayRange(day string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}
