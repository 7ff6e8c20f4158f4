package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qrmenu-backend/internal/audit"
	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"
	"qrmenu-backend/internal/realtime"
	"qrmenu-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ==============================
// Request bodies
// ==============================

type CreateOrderRequest struct {
	TableNumber    string      `json:"tableNumber"`
	TableID        string      `json:"tableId"`
	Items          []ItemInput `json:"items" validate:"required,min=1,dive"`
	CustomerName   string      `json:"customerName" validate:"max=100"`
	CustomerMobile string      `json:"customerMobile" validate:"max=30"`
	Description    string      `json:"description" validate:"max=500"`
	PaymentMethod  string      `json:"paymentMethod" validate:"max=30"`
	DiscountAmount float64     `json:"discountAmount" validate:"gte=0"`
}

func (r CreateOrderRequest) tableRef() string {
	if ref := strings.TrimSpace(r.TableNumber); ref != "" {
		return ref
	}
	return strings.TrimSpace(r.TableID)
}

type UpdateOrderRequest struct {
	Status         *models.OrderStatus `json:"status"`
	Items          *[]ItemInput        `json:"items" validate:"omitempty,min=1,dive"`
	DiscountAmount *float64            `json:"discountAmount" validate:"omitempty,gte=0"`
	PaymentMethod  *string             `json:"paymentMethod" validate:"omitempty,max=30"`
	CustomerName   *string             `json:"customerName" validate:"omitempty,max=100"`
	CustomerMobile *string             `json:"customerMobile" validate:"omitempty,max=30"`
	Description    *string             `json:"description" validate:"omitempty,max=500"`
}

type StatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// ==============================
// Helpers
// ==============================

// HTTPError maps order domain errors to responses.
func HTTPError(err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, ErrInvalidTable),
		errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidStatus):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrTableOccupied),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrOrderClosed):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	zap.L().Error("order operation failed", zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, "Order could not be processed")
}

// Notify fans an order change out to the tenant's rooms. It runs after
// commit and never fails the request.
func Notify(ctx context.Context, hub *realtime.Hub, name string, o *models.Order) {
	if hub == nil || o == nil {
		return
	}
	hub.Publish(ctx, realtime.Event{
		Name:         name,
		RestaurantID: o.RestaurantID,
		OrderID:      o.ID,
		Status:       string(o.Status),
		Order:        o,
		Timestamp:    time.Now(),
	})
}

func filterFromQuery(c *fiber.Ctx) (Filter, error) {
	f := Filter{
		Status:      models.OrderStatus(c.Query("status")),
		TableID:     c.Query("tableId"),
		TableNumber: c.Query("tableNumber"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fiber.NewError(fiber.StatusBadRequest, ErrInvalidStatus.Error())
	}

	if day := c.Query("date"); day != "" {
		from, to, err := DayRange(day, time.Local)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		f.From, f.To = from, to
	}
	if v := c.Query("from"); v != "" {
		from, _, err := DayRange(v, time.Local)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		f.From = from
	}
	if v := c.Query("to"); v != "" {
		_, to, err := DayRange(v, time.Local)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		f.To = to
	}
	return f, nil
}

// ==============================
// Handlers
// ==============================

// POST /api/restaurants/:restaurantId/orders
// Counter orders placed by staff; prices in the body override the menu.
func CreateOrderHandler(hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		order, err := Place(c.UserContext(), database.DB, PlaceInput{
			RestaurantID:   auth.RestaurantID(c),
			Table:          body.tableRef(),
			Items:          body.Items,
			CustomerName:   body.CustomerName,
			CustomerMobile: body.CustomerMobile,
			Description:    body.Description,
			PaymentMethod:  body.PaymentMethod,
			DiscountAmount: body.DiscountAmount,
			Source:         models.SourceCounter,
			Actor:          audit.ActorFrom(c),
		})
		if err != nil {
			return HTTPError(err)
		}

		Notify(c.UserContext(), hub, realtime.EventNewOrder, order)
		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

// POST /api/orders/public/:restaurantId
// Guest orders from the QR menu. A table is required and prices always
// come from the menu.
func CreatePublicOrderHandler(hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		restaurantID := c.Params("restaurantId")

		var restaurant models.Restaurant
		if err := database.DB.Select("id").First(&restaurant, "id = ?", restaurantID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Restaurant not found")
		}

		var body CreateOrderRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if body.tableRef() == "" {
			return fiber.NewError(fiber.StatusBadRequest, "tableNumber is required")
		}

		order, err := Place(c.UserContext(), database.DB, PlaceInput{
			RestaurantID:   restaurant.ID,
			Table:          body.tableRef(),
			Items:          body.Items,
			CustomerName:   body.CustomerName,
			CustomerMobile: body.CustomerMobile,
			Description:    body.Description,
			Source:         models.SourceCustomer,
			Actor:          audit.Customer,
		})
		if err != nil {
			return HTTPError(err)
		}

		Notify(c.UserContext(), hub, realtime.EventNewOrder, order)
		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

// GET /api/restaurants/:restaurantId/orders?status=&tableId=&tableNumber=&date=&from=&to=
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := filterFromQuery(c)
		if err != nil {
			return err
		}

		list, err := List(c.UserContext(), database.DB, auth.RestaurantID(c), f)
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(list)
	}
}

// GET /api/restaurants/:restaurantId/orders/:id
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := Get(c.UserContext(), database.DB, auth.RestaurantID(c), c.Params("id"))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(order)
	}
}

// GET /api/orders/:id
// Order status page for guests; the id itself is the credential.
func GetPublicOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := Get(c.UserContext(), database.DB, "", c.Params("id"))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(order)
	}
}

// PUT /api/restaurants/:restaurantId/orders/:id
// Body may carry edits, a status, or both. Edits apply first and are
// rolled back if the status change is refused.
func UpdateOrderHandler(hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateOrderRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		restaurantID := auth.RestaurantID(c)
		orderID := c.Params("id")
		actor := audit.ActorFrom(c)

		edit := EditInput{
			Items:          body.Items,
			DiscountAmount: body.DiscountAmount,
			PaymentMethod:  body.PaymentMethod,
			CustomerName:   body.CustomerName,
			CustomerMobile: body.CustomerMobile,
			Description:    body.Description,
			Actor:          actor,
		}
		if edit.Empty() && body.Status == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Nothing to update")
		}

		order, changed, err := Update(c.UserContext(), database.DB, restaurantID, orderID, edit, body.Status)
		if err != nil {
			return HTTPError(err)
		}
		if changed {
			Notify(c.UserContext(), hub, realtime.EventStatusUpdated, order)
		}

		return c.JSON(order)
	}
}

// PUT /api/restaurants/:restaurantId/orders/:id/status
func UpdateOrderStatusHandler(hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StatusRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		order, changed, err := UpdateStatus(c.UserContext(), database.DB, auth.RestaurantID(c), c.Params("id"), body.Status, audit.ActorFrom(c))
		if err != nil {
			return HTTPError(err)
		}
		if changed {
			Notify(c.UserContext(), hub, realtime.EventStatusUpdated, order)
		}
		return c.JSON(order)
	}
}

// GET /api/restaurants/:restaurantId/orders/analytics?period=daily|weekly|monthly|yearly|all&month=YYYY-MM
func AnalyticsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, label, err := PeriodRange(c.Query("period", "daily"), c.Query("month"), time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		list, err := List(c.UserContext(), database.DB, auth.RestaurantID(c), Filter{From: from, To: to})
		if err != nil {
			return HTTPError(err)
		}

		a := Summarize(list)
		a.Period = label
		if !from.IsZero() {
			a.From = from.Format(dateLayout)
			a.To = to.AddDate(0, 0, -1).Format(dateLayout)
		}
		return c.JSON(a)
	}
}

// GET /api/restaurants/:restaurantId/orders/export?date=&from=&to=&status=
func ExportOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := filterFromQuery(c)
		if err != nil {
			return err
		}
		f.Oldest = true

		list, err := List(c.UserContext(), database.DB, auth.RestaurantID(c), f)
		if err != nil {
			return HTTPError(err)
		}

		buf, err := ExportXLSX(list)
		if err != nil {
			zap.L().Error("order export failed", zap.String("restaurant_id", auth.RestaurantID(c)), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Export could not be generated")
		}

		name := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102-1504"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
		return c.Send(buf.Bytes())
	}
}
