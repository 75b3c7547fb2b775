// Package ws pushes queue events to websocket clients grouped in rooms, one
// room per doctor and queue date.
package ws

import (
	"encoding/json"
	"sync"

	"healthsync-api/internal/service"

	"github.com/sirupsen/logrus"
)

const sendBufferSize = 16

// Client is one websocket subscriber of a room.
type Client struct {
	ID   string
	Room string
	Send chan []byte
}

func NewClient(id, room string) *Client {
	return &Client{
		ID:   id,
		Room: room,
		Send: make(chan []byte, sendBufferSize),
	}
}

// Hub tracks clients by room. It implements service.QueueEventSink.
type Hub struct {
	log *logrus.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.Room] == nil {
		h.rooms[client.Room] = make(map[*Client]struct{})
	}
	h.rooms[client.Room][client] = struct{}{}
}

// Unregister removes the client and closes its Send channel. Safe to call
// more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	members, ok := h.rooms[client.Room]
	if !ok {
		return
	}
	if _, ok := members[client]; !ok {
		return
	}

	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, client.Room)
	}
	close(client.Send)
}

// Broadcast sends event to every client in room. Clients whose buffer is
// full are dropped.
func (h *Hub) Broadcast(room string, event service.QueueEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warnf("Failed to marshal queue event: %+v", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.rooms[room] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, client := range slow {
		h.removeLocked(client)
	}
	h.mu.Unlock()
	h.log.Warnf("Dropped %d slow websocket clients from %s", len(slow), room)
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, members := range h.rooms {
		for client := range members {
			h.removeLocked(client)
		}
	}
}
