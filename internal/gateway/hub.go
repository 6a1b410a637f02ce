package gateway

import (
	"sort"
	"sync"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"
)

// Subscriber is the hub's view of a connection.
type Subscriber interface {
	ID() string
	Send(msg domain.Message) error
	Close() error
}

// Hub is the room-scoped fan-out registry: site rooms and auction rooms,
// each holding the connections that joined them. Join and leave are
// idempotent, so a duplicated join message on the wire changes nothing.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Subscriber
	conns map[string]map[string]struct{} // connection id -> joined rooms
	log   logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[string]Subscriber),
		conns: make(map[string]map[string]struct{}),
		log:   log,
	}
}

func (h *Hub) Join(room string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]Subscriber)
	}
	if _, joined := h.rooms[room][sub.ID()]; joined {
		return
	}
	h.rooms[room][sub.ID()] = sub

	if h.conns[sub.ID()] == nil {
		h.conns[sub.ID()] = make(map[string]struct{})
	}
	h.conns[sub.ID()][room] = struct{}{}

	h.log.Debug("Joined room", "connection_id", sub.ID(), "room", room)
}

func (h *Hub) Leave(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(room, connID)
}

// Disconnect removes the connection from every room it joined.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.conns[connID] {
		h.removeLocked(room, connID)
	}
}

func (h *Hub) removeLocked(room, connID string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.conns[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.conns, connID)
		}
	}
}

// BroadcastToRoom delivers msg to every member. A failed send drops that
// member only; the rest of the room still receives the event.
func (h *Hub) BroadcastToRoom(room string, msg domain.Message) error {
	h.mu.RLock()
	members := make([]Subscriber, 0, len(h.rooms[room]))
	for _, sub := range h.rooms[room] {
		members = append(members, sub)
	}
	h.mu.RUnlock()

	for _, sub := range members {
		if err := sub.Send(msg); err != nil {
			h.log.Warn("Failed to deliver room event",
				"connection_id", sub.ID(), "room", room, "error", err)
		}
	}
	return nil
}

// RoomsOf lists the rooms a connection currently belongs to, sorted.
func (h *Hub) RoomsOf(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var rooms []string
	for room := range h.conns[connID] {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Members lists the connection ids in a room, sorted.
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ids []string
	for id := range h.rooms[room] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
