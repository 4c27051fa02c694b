package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomEvent routes an event to the clients of one room
type roomEvent struct {
	Room  string
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room name
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	// Closed when Run returns; later sends are dropped
	done chan struct{}

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing every
// client's send channel. Call it as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: marshal ws event %s: %v", event.Event.Type, err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Room] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove closes a client's channel and drops empty rooms. Caller holds mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// Broadcast sends an event to all clients subscribed to a room.
// Once the hub has stopped the event is dropped.
func (h *Hub) Broadcast(room string, event Event) {
	select {
	case h.broadcast <- &roomEvent{Room: room, Event: event}:
	case <-h.done:
	}
}

// join hands client to the running hub. It reports false if the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave detaches client. After shutdown Run has already closed every client.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish marshals payload and broadcasts it as eventType to room.
// Marshal failures are logged and dropped.
func (h *Hub) Publish(room, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s payload: %v", eventType, err)
		return
	}
	h.Broadcast(room, Event{Type: eventType, Payload: data})
}
