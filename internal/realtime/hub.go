package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/models"

	"go.uber.org/zap"
)

var (
	ErrUnknownRoom   = errors.New("unknown room")
	ErrRoomForbidden = errors.New("not allowed to join this room")
	ErrClosed        = errors.New("subscriber closed")
)

const sendBuffer = 32

// Relay carries events between server instances. Publish must hand the
// event to every instance, this one included.
type Relay interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber is one connected client.
type Subscriber struct {
	session *auth.Session
	send    chan Frame
	rooms   map[string]struct{}
	closed  bool
}

// Frames yields everything queued for the client. It is closed on Unsubscribe.
func (s *Subscriber) Frames() <-chan Frame { return s.send }

// Hub keeps room membership and delivers events. Delivery is best effort:
// a slow client whose buffer is full misses the frame and is expected to
// catch up through its periodic refresh.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
	relay Relay
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]map[*Subscriber]struct{}),
		log:   log,
	}
}

func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

func (h *Hub) Subscribe(sess *auth.Session) *Subscriber {
	return &Subscriber{
		session: sess,
		send:    make(chan Frame, sendBuffer),
		rooms:   make(map[string]struct{}),
	}
}

// Join admits sub to room after checking the room belongs to the
// subscriber's tenant. Joining twice is harmless.
func (h *Hub) Join(sub *Subscriber, room string) error {
	prefix, tenantID, ok := roomTenant(room)
	if !ok {
		return ErrUnknownRoom
	}
	if sub.session == nil || sub.session.RestaurantID != tenantID {
		return ErrRoomForbidden
	}
	if prefix == restaurantRoomPrefix && sub.session.Role == models.RoleKitchen {
		return ErrRoomForbidden
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return ErrClosed
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Subscriber]struct{})
		h.rooms[room] = members
	}
	members[sub] = struct{}{}
	sub.rooms[room] = struct{}{}
	return nil
}

// Unsubscribe drops sub from every room and closes its frame channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	for room := range sub.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, sub)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	sub.closed = true
	close(sub.send)
}

// Reply queues a frame for one subscriber only.
func (h *Hub) Reply(sub *Subscriber, f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !sub.closed {
		h.offer(sub, f)
	}
}

// Publish sends ev to the tenant's restaurant and kitchen rooms. With a
// relay configured the event goes through the broker; if that fails it is
// still delivered to clients on this instance. Publish never returns an
// error: the order change it reports is already committed.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()

	if relay != nil {
		err := relay.Publish(ctx, ev)
		if err == nil {
			return
		}
		h.log.Warn("relay publish failed, delivering locally",
			zap.String("event", ev.Name),
			zap.String("order_id", ev.OrderID),
			zap.Error(err))
	}
	h.Deliver(ev)
}

// Deliver fans ev out to local subscribers.
func (h *Hub) Deliver(ev Event) {
	frame := Frame{Event: ev.Name, Data: ev}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Subscriber]struct{})
	for _, room := range []string{RestaurantRoom(ev.RestaurantID), KitchenRoom(ev.RestaurantID)} {
		for sub := range h.rooms[room] {
			if _, dup := seen[sub]; dup {
				continue
			}
			seen[sub] = struct{}{}
			f := frame
			f.Room = room
			h.offer(sub, f)
		}
	}
}

// RoomSize reports how many subscribers are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// offer must be called with h.mu held.
func (h *Hub) offer(sub *Subscriber, f Frame) {
	select {
	case sub.send <- f:
	default:
		h.log.Debug("dropping frame for slow client", zap.String("event", f.Event))
	}
}
