package orders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"qrmenu-backend/internal/audit"
	"qrmenu-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrInvalidTable      = errors.New("invalid table")
	ErrEmptyOrder        = errors.New("order must contain at least one item")
	ErrInvalidItem       = errors.New("invalid menu item")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTableOccupied     = errors.New("table already has an open order")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderClosed       = errors.New("order is completed and can no longer be changed")
)

type ItemInput struct {
	MenuItemID string   `json:"menuItemId" validate:"required"`
	Quantity   int      `json:"quantity" validate:"gt=0"`
	Price      *float64 `json:"price" validate:"omitempty,gte=0"`
	Name       string   `json:"name"`
}

type PlaceInput struct {
	RestaurantID   string
	Table          string // table number or table id
	Items          []ItemInput
	CustomerName   string
	CustomerMobile string
	Description    string
	PaymentMethod  string
	DiscountAmount float64
	Source         models.OrderSource
	Actor          audit.Actor
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type totals struct {
	subtotal, discount, gst, total float64
}

func computeTotals(items []models.OrderItem, discount, gstPercentage float64) totals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Price * float64(it.Quantity)
	}
	subtotal = round2(subtotal)

	discount = round2(math.Min(math.Max(discount, 0), subtotal))
	taxable := subtotal - discount
	gst := round2(taxable * gstPercentage / 100)

	return totals{
		subtotal: subtotal,
		discount: discount,
		gst:      gst,
		total:    round2(taxable + gst),
	}
}

// resolveTable accepts the human table number first and falls back to the id.
func resolveTable(tx *gorm.DB, restaurantID, ref string) (*models.Table, error) {
	if ref == "" {
		return nil, ErrInvalidTable
	}
	var table models.Table
	err := tx.Where("restaurant_id = ? AND table_number = ?", restaurantID, ref).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = tx.Where("restaurant_id = ? AND id = ?", restaurantID, ref).First(&table).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidTable
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// tableHasOpenOrder reports whether the table's current order is still open.
func tableHasOpenOrder(tx *gorm.DB, table *models.Table) (bool, error) {
	if table.CurrentOrderID == nil || *table.CurrentOrderID == "" {
		return false, nil
	}
	var current models.Order
	err := tx.Select("id", "status").Where("id = ?", *table.CurrentOrderID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return current.Status.Open(), nil
}

// claimTable points the table at orderID, but only if it still holds the
// order seen when occupancy was checked. A concurrent placement that got
// there first leaves nothing to update and the caller gets ErrTableOccupied.
func claimTable(tx *gorm.DB, table *models.Table, orderID, customerName, customerMobile string) error {
	q := tx.Model(&models.Table{}).Where("id = ? AND restaurant_id = ?", table.ID, table.RestaurantID)
	if table.CurrentOrderID == nil {
		q = q.Where("current_order_id IS NULL")
	} else {
		q = q.Where("current_order_id = ?", *table.CurrentOrderID)
	}
	res := q.Updates(map[string]any{
		"status":           models.TableRunning,
		"current_order_id": orderID,
		"customer_name":    customerName,
		"customer_mobile":  customerMobile,
		"last_activity":    time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTableOccupied
	}
	return nil
}

// takeStock decrements a menu item's stock only if enough is left.
func takeStock(tx *gorm.DB, restaurantID string, item *models.MenuItem, qty int) error {
	res := tx.Model(&models.MenuItem{}).
		Where("id = ? AND restaurant_id = ? AND quantity >= ?", item.ID, restaurantID, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w for %s", ErrInsufficientStock, item.Name)
	}
	return nil
}

func returnStock(tx *gorm.DB, restaurantID, menuItemID string, qty int) error {
	return tx.Model(&models.MenuItem{}).
		Where("id = ? AND restaurant_id = ?", menuItemID, restaurantID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty)).Error
}

// buildLines validates requested lines against the tenant menu, takes
// stock, and captures name and price. previous maps menu item id to a line
// already on the order whose captured price must be kept.
func buildLines(tx *gorm.DB, restaurantID string, in []ItemInput, trustPrices bool, previous map[string]models.OrderItem) ([]models.OrderItem, error) {
	if len(in) == 0 {
		return nil, ErrEmptyOrder
	}

	// stock rows are locked in menu item id order so two orders naming the
	// same dishes in a different order cannot deadlock
	idx := make([]int, len(in))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(in[a].MenuItemID, in[b].MenuItemID)
	})

	lines := make([]models.OrderItem, len(in))
	for _, i := range idx {
		it := in[i]
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		var item models.MenuItem
		err := tx.Where("id = ? AND restaurant_id = ?", it.MenuItemID, restaurantID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidItem, it.MenuItemID)
		}
		if err != nil {
			return nil, err
		}

		if err := takeStock(tx, restaurantID, &item, it.Quantity); err != nil {
			return nil, err
		}

		line := models.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   it.Quantity,
		}
		if prev, ok := previous[item.ID]; ok {
			line.Name, line.Price = prev.Name, prev.Price
		}
		if trustPrices {
			if it.Price != nil {
				line.Price = round2(*it.Price)
			}
			if it.Name != "" {
				line.Name = it.Name
			}
		}
		lines[i] = line
	}
	return lines, nil
}

// Place creates an order in one transaction: stock, counters, order row,
// table state and audit entry commit together or not at all. Customer
// orders always use menu prices; counter orders may override them.
func Place(ctx context.Context, db *gorm.DB, in PlaceInput) (*models.Order, error) {
	if in.Source == "" {
		in.Source = models.SourceCustomer
	}
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var order models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table *models.Table
		if in.Table != "" || in.Source == models.SourceCustomer {
			t, err := resolveTable(tx, in.RestaurantID, in.Table)
			if err != nil {
				return err
			}
			open, err := tableHasOpenOrder(tx, t)
			if err != nil {
				return err
			}
			if open {
				return ErrTableOccupied
			}
			table = t
		}

		lines, err := buildLines(tx, in.RestaurantID, in.Items, in.Source == models.SourceCounter, nil)
		if err != nil {
			return err
		}

		var gstPercentage float64
		if table != nil && table.GSTEnabled {
			gstPercentage = table.GSTPercentage
		}
		sum := computeTotals(lines, in.DiscountAmount, gstPercentage)

		token, err := nextSequence(tx, in.RestaurantID, models.CounterToken)
		if err != nil {
			return err
		}
		bill, err := nextSequence(tx, in.RestaurantID, models.CounterBill)
		if err != nil {
			return err
		}

		order = models.Order{
			RestaurantID:   in.RestaurantID,
			Token:          token,
			BillNumber:     bill,
			Items:          lines,
			Subtotal:       sum.subtotal,
			DiscountAmount: sum.discount,
			GSTPercentage:  gstPercentage,
			GSTAmount:      sum.gst,
			TotalAmount:    sum.total,
			Status:         models.OrderPending,
			Source:         in.Source,
			Description:    in.Description,
			CustomerName:   in.CustomerName,
			CustomerMobile: in.CustomerMobile,
			PaymentMethod:  in.PaymentMethod,
		}
		if table != nil {
			order.TableID = &table.ID
			order.TableNumber = table.TableNumber
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if table != nil {
			if err := claimTable(tx, table, order.ID, in.CustomerName, in.CustomerMobile); err != nil {
				return err
			}
		}

		return audit.WriteLog(tx, audit.LogOptions{
			RestaurantID: in.RestaurantID,
			Actor:        in.Actor,
			EntityType:   "order",
			EntityID:     order.ID,
			Action:       models.AuditActionCreate,
			Description:  fmt.Sprintf("Order #%d placed, total %.2f", order.Token, order.TotalAmount),
			After:        order,
		})
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus moves an order along its lifecycle. Paying marks the table
// paid; completing frees the table for the next guest. Both happen in the
// same transaction as the status write. changed is false for a no-op.
func UpdateStatus(ctx context.Context, db *gorm.DB, restaurantID, orderID string, status models.OrderStatus, actor audit.Actor) (*models.Order, bool, error) {
	return Update(ctx, db, restaurantID, orderID, EditInput{Actor: actor}, &status)
}

// Update applies an edit and then a status change in one transaction, so a
// rejected transition also discards the edit. Either part may be absent.
func Update(ctx context.Context, db *gorm.DB, restaurantID, orderID string, in EditInput, status *models.OrderStatus) (order *models.Order, changed bool, err error) {
	if status != nil && !status.Valid() {
		return nil, false, ErrInvalidStatus
	}

	var o *models.Order
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !in.Empty() {
			edited, err := editOrder(tx, restaurantID, orderID, in)
			if err != nil {
				return err
			}
			o = edited
		}
		if status != nil {
			moved, ok, err := moveStatus(tx, restaurantID, orderID, *status, in.Actor)
			if err != nil {
				return err
			}
			o, changed = moved, ok
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if o == nil {
		return nil, false, ErrOrderNotFound
	}

	if err := db.WithContext(ctx).Where("order_id = ?", o.ID).Order("id").Find(&o.Items).Error; err != nil {
		return nil, false, err
	}
	return o, changed, nil
}

func moveStatus(tx *gorm.DB, restaurantID, orderID string, status models.OrderStatus, actor audit.Actor) (*models.Order, bool, error) {
	var o models.Order
	if err := tx.Where("id = ? AND restaurant_id = ?", orderID, restaurantID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrOrderNotFound
		}
		return nil, false, err
	}

	if o.Status == status {
		return &o, false, nil
	}
	if !o.Status.Open() {
		return nil, false, ErrOrderClosed
	}
	if status.Rank() < o.Status.Rank() {
		return nil, false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, status)
	}

	before := o.Status
	if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("status", status).Error; err != nil {
		return nil, false, err
	}
	o.Status = status

	if o.TableID != nil {
		if err := syncTable(tx, &o); err != nil {
			return nil, false, err
		}
	}

	err := audit.WriteLog(tx, audit.LogOptions{
		RestaurantID: restaurantID,
		Actor:        actor,
		EntityType:   "order",
		EntityID:     o.ID,
		Action:       models.AuditActionStatus,
		Description:  fmt.Sprintf("Order #%d: %s -> %s", o.Token, before, status),
		Before:       map[string]any{"status": before},
		After:        map[string]any{"status": status},
	})
	if err != nil {
		return nil, false, err
	}
	return &o, true, nil
}

// syncTable applies the table side effect of an order status. Paying only
// touches a table still holding this order; completing also resets a table
// that was already released by hand.
func syncTable(tx *gorm.DB, o *models.Order) error {
	q := tx.Model(&models.Table{}).Where("id = ? AND restaurant_id = ?", *o.TableID, o.RestaurantID)
	switch o.Status {
	case models.OrderPaid:
		return q.Where("current_order_id = ?", o.ID).Updates(map[string]any{
			"status":        models.TablePaid,
			"last_activity": time.Now(),
		}).Error
	case models.OrderCompleted:
		return q.Where("current_order_id = ? OR current_order_id IS NULL", o.ID).Updates(map[string]any{
			"status":           models.TableBlank,
			"current_order_id": nil,
			"customer_name":    "",
			"customer_mobile":  "",
			"last_activity":    time.Now(),
		}).Error
	}
	return nil
}

type EditInput struct {
	Items          *[]ItemInput
	DiscountAmount *float64
	PaymentMethod  *string
	CustomerName   *string
	CustomerMobile *string
	Description    *string
	Actor          audit.Actor
}

func (in EditInput) Empty() bool {
	return in.Items == nil && in.DiscountAmount == nil && in.PaymentMethod == nil &&
		in.CustomerName == nil && in.CustomerMobile == nil && in.Description == nil
}

// Edit changes an open order. Replacing the item list returns the old
// quantities to stock before taking the new ones, so the same clamp
// applies as on placement. Lines for dishes already on the order keep
// their captured price.
func Edit(ctx context.Context, db *gorm.DB, restaurantID, orderID string, in EditInput) (*models.Order, error) {
	order, _, err := Update(ctx, db, restaurantID, orderID, in, nil)
	return order, err
}

func editOrder(tx *gorm.DB, restaurantID, orderID string, in EditInput) (*models.Order, error) {
	var o models.Order
	if err := tx.Preload("Items").Where("id = ? AND restaurant_id = ?", orderID, restaurantID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !o.Status.Open() {
		return nil, ErrOrderClosed
	}
	before := o

	if in.Items != nil {
		previous := make(map[string]models.OrderItem, len(o.Items))
		slices.SortFunc(o.Items, func(a, b models.OrderItem) int {
			return cmp.Compare(a.MenuItemID, b.MenuItemID)
		})
		for _, it := range o.Items {
			if err := returnStock(tx, restaurantID, it.MenuItemID, it.Quantity); err != nil {
				return nil, err
			}
			if _, ok := previous[it.MenuItemID]; !ok {
				previous[it.MenuItemID] = it
			}
		}

		lines, err := buildLines(tx, restaurantID, *in.Items, true, previous)
		if err != nil {
			return nil, err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return nil, err
		}
		for i := range lines {
			lines[i].OrderID = o.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return nil, err
		}
		o.Items = lines
	}

	if in.DiscountAmount != nil {
		o.DiscountAmount = *in.DiscountAmount
	}
	if in.PaymentMethod != nil {
		o.PaymentMethod = *in.PaymentMethod
	}
	if in.CustomerName != nil {
		o.CustomerName = *in.CustomerName
	}
	if in.CustomerMobile != nil {
		o.CustomerMobile = *in.CustomerMobile
	}
	if in.Description != nil {
		o.Description = *in.Description
	}

	sum := computeTotals(o.Items, o.DiscountAmount, o.GSTPercentage)
	o.Subtotal, o.DiscountAmount, o.GSTAmount, o.TotalAmount = sum.subtotal, sum.discount, sum.gst, sum.total

	if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Updates(map[string]any{
		"subtotal":        o.Subtotal,
		"discount_amount": o.DiscountAmount,
		"gst_amount":      o.GSTAmount,
		"total_amount":    o.TotalAmount,
		"payment_method":  o.PaymentMethod,
		"customer_name":   o.CustomerName,
		"customer_mobile": o.CustomerMobile,
		"description":     o.Description,
	}).Error; err != nil {
		return nil, err
	}

	if o.TableID != nil && (in.CustomerName != nil || in.CustomerMobile != nil) {
		if err := tx.Model(&models.Table{}).
			Where("id = ? AND current_order_id = ?", *o.TableID, o.ID).
			Updates(map[string]any{
				"customer_name":   o.CustomerName,
				"customer_mobile": o.CustomerMobile,
				"last_activity":   time.Now(),
			}).Error; err != nil {
			return nil, err
		}
	}

	err := audit.WriteLog(tx, audit.LogOptions{
		RestaurantID: restaurantID,
		Actor:        in.Actor,
		EntityType:   "order",
		EntityID:     o.ID,
		Action:       models.AuditActionUpdate,
		Description:  fmt.Sprintf("Order #%d edited, total %.2f -> %.2f", o.Token, before.TotalAmount, o.TotalAmount),
		Before:       before,
		After:        o,
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}
