package models

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
)

// orderRank orders statuses along the lifecycle; paid sits between
// served and completed.
var orderRank = map[OrderStatus]int{
	OrderPending:   0,
	OrderPreparing: 1,
	OrderReady:     2,
	OrderServed:    3,
	OrderPaid:      4,
	OrderCompleted: 5,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderRank[s]
	return ok
}

// Rank returns the lifecycle position of s, -1 for unknown values.
func (s OrderStatus) Rank() int {
	if r, ok := orderRank[s]; ok {
		return r
	}
	return -1
}

// Open reports whether the order still holds its table.
func (s OrderStatus) Open() bool { return s != OrderCompleted }

type OrderSource string

const (
	SourceCustomer OrderSource = "customer"
	SourceCounter  OrderSource = "counter"
)

type Order struct {
	Base
	RestaurantID   string      `gorm:"type:varchar(36);index;uniqueIndex:idx_order_restaurant_token;uniqueIndex:idx_order_restaurant_bill;not null" json:"restaurantId"`
	TableID        *string     `gorm:"type:varchar(36);index" json:"tableId"`
	TableNumber    string      `gorm:"size:50" json:"tableNumber"`
	Token          int64       `gorm:"uniqueIndex:idx_order_restaurant_token;not null" json:"token"`
	BillNumber     int64       `gorm:"uniqueIndex:idx_order_restaurant_bill;not null" json:"billNumber"`
	Items          []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal       float64     `gorm:"not null" json:"subtotal"`
	DiscountAmount float64     `gorm:"not null" json:"discountAmount"`
	GSTPercentage  float64     `gorm:"not null" json:"gstPercentage"`
	GSTAmount      float64     `gorm:"not null" json:"gstAmount"`
	TotalAmount    float64     `gorm:"not null" json:"totalAmount"`
	Status         OrderStatus `gorm:"size:20;not null;index" json:"status"`
	Source         OrderSource `gorm:"size:20;not null" json:"source"`
	Description    string      `gorm:"size:500" json:"description"`
	CustomerName   string      `gorm:"size:100" json:"customerName"`
	CustomerMobile string      `gorm:"size:30" json:"customerMobile"`
	PaymentMethod  string      `gorm:"size:30" json:"paymentMethod"`
}

// OrderItem captures name and price at order time so old bills do not
// move when the menu is edited.
type OrderItem struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	OrderID    string  `gorm:"type:varchar(36);index;not null" json:"-"`
	MenuItemID string  `gorm:"type:varchar(36);index;not null" json:"menuItemId"`
	Name       string  `gorm:"size:150;not null" json:"name"`
	Price      float64 `gorm:"not null" json:"price"`
	Quantity   int     `gorm:"not null" json:"quantity"`
}

// Counter holds the next value of a per-tenant sequence.
type Counter struct {
	RestaurantID string `gorm:"type:varchar(36);primaryKey"`
	Name         string `gorm:"size:30;primaryKey"`
	Value        int64  `gorm:"not null"`
}

const (
	CounterToken = "token"
	CounterBill  = "bill"
)
