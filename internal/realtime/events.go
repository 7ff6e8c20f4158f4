package realtime

import (
	"strings"
	"time"
)

// Server to client event names.
const (
	EventNewOrder      = "newOrderReceived"
	EventStatusUpdated = "orderStatusUpdated"
	EventJoined        = "joined"
	EventError         = "error"
)

// Client to server event names.
const (
	ActionJoinRestaurant = "joinRestaurant"
	ActionJoinKitchen    = "joinKitchen"
)

const (
	restaurantRoomPrefix = "restaurant_"
	kitchenRoomPrefix    = "kitchen_"
)

func RestaurantRoom(restaurantID string) string { return restaurantRoomPrefix + restaurantID }
func KitchenRoom(restaurantID string) string    { return kitchenRoomPrefix + restaurantID }

// roomTenant splits a room name into its kind prefix and tenant id.
func roomTenant(room string) (prefix, tenantID string, ok bool) {
	for _, p := range []string{restaurantRoomPrefix, kitchenRoomPrefix} {
		if strings.HasPrefix(room, p) && len(room) > len(p) {
			return p, room[len(p):], true
		}
	}
	return "", "", false
}

// Event is an order change fanned out to a tenant's rooms.
type Event struct {
	Name         string    `json:"event"`
	RestaurantID string    `json:"restaurantId"`
	OrderID      string    `json:"orderId"`
	Status       string    `json:"status"`
	Order        any       `json:"order,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Frame is what a connected client receives.
type Frame struct {
	Event   string `json:"event"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ClientMessage is what a connected client sends.
type ClientMessage struct {
	Event        string `json:"event"`
	RestaurantID string `json:"restaurantId"`
}
