package realtime

import (
	"errors"

	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/config"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const ctxWSSession = "ws_session"

// UpgradeMiddleware admits only websocket upgrades that carry a valid
// session credential: cookie, bearer header or ?token= for browsers that
// cannot set headers on a socket.
func UpgradeMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		raw := auth.TokenFromRequest(c)
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
		}

		sess, err := auth.Authenticate(cfg.JWTSecret, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}
		c.Locals(ctxWSSession, sess)
		return c.Next()
	}
}

// Handler serves one socket: a writer goroutine drains the subscriber's
// frames while the read loop handles join requests.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sess, _ := conn.Locals(ctxWSSession).(*auth.Session)
		if sess == nil {
			return
		}

		sub := hub.Subscribe(sess)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for f := range sub.Frames() {
				if err := conn.WriteJSON(f); err != nil {
					return
				}
			}
		}()

		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				break
			}
			hub.handleMessage(sub, msg)
		}

		hub.Unsubscribe(sub)
		<-done
	})
}

func (h *Hub) handleMessage(sub *Subscriber, msg ClientMessage) {
	var room string
	switch msg.Event {
	case ActionJoinRestaurant:
		room = RestaurantRoom(msg.RestaurantID)
	case ActionJoinKitchen:
		room = KitchenRoom(msg.RestaurantID)
	default:
		h.Reply(sub, Frame{Event: EventError, Message: "unknown event " + msg.Event})
		return
	}

	if err := h.Join(sub, room); err != nil {
		if errors.Is(err, ErrRoomForbidden) {
			h.log.Warn("room join refused",
				zap.String("room", room),
				zap.String("session_restaurant_id", sub.session.RestaurantID))
		}
		h.Reply(sub, Frame{Event: EventError, Room: room, Message: err.Error()})
		return
	}
	h.Reply(sub, Frame{Event: EventJoined, Room: room})
}
