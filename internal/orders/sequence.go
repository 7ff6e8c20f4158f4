package orders

import (
	"fmt"

	"qrmenu-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nextSequence returns the next value of a tenant counter. The increment
// is a single UPDATE, so concurrent callers queue on the counter row
// instead of racing on a read of the current maximum. It must run inside
// the transaction that consumes the value.
func nextSequence(tx *gorm.DB, restaurantID, name string) (int64, error) {
	seed := models.Counter{RestaurantID: restaurantID, Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("seed %s counter: %w", name, err)
	}

	res := tx.Model(&models.Counter{}).
		Where("restaurant_id = ? AND name = ?", restaurantID, name).
		UpdateColumn("value", gorm.Expr("value + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("increment %s counter: %w", name, res.Error)
	}
	if res.RowsAffected != 1 {
		return 0, fmt.Errorf("%s counter missing for restaurant %s", name, restaurantID)
	}

	var counter models.Counter
	if err := tx.Where("restaurant_id = ? AND name = ?", restaurantID, name).First(&counter).Error; err != nil {
		return 0, fmt.Errorf("read %s counter: %w", name, err)
	}
	return counter.Value, nil
}
