package tables

import (
	"fmt"
	"net/url"
	"strings"

	"qrmenu-backend/internal/models"

	"gorm.io/gorm"
)

// QRURL is the deep link printed on a table's QR code.
func QRURL(frontendURL, restaurantID, tableNumber string) string {
	return fmt.Sprintf("%s/menu/%s?table=%s",
		strings.TrimRight(frontendURL, "/"),
		url.PathEscape(restaurantID),
		url.QueryEscape(tableNumber))
}

// RefreshQRURLs rewrites the QR link of every table of a tenant, used
// after the frontend moves to a new address.
func RefreshQRURLs(db *gorm.DB, frontendURL, restaurantID string) (int, error) {
	var list []models.Table
	if err := db.Where("restaurant_id = ?", restaurantID).Find(&list).Error; err != nil {
		return 0, err
	}

	updated := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, t := range list {
			link := QRURL(frontendURL, restaurantID, t.TableNumber)
			if link == t.QRURL {
				continue
			}
			if err := tx.Model(&models.Table{}).Where("id = ?", t.ID).Update("qr_url", link).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
