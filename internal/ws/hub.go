package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	EventStockStatus = "stock.status"
	EventStockChange = "stock.changed"
	EventPOUpdated   = "purchase.updated"
	EventSaleCreated = "sale.created"
)

// Message is the envelope pushed to dashboard clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, 64),
	}
}

// Publish never blocks the caller: when the broadcast buffer is full the
// event is dropped.
func (h *Hub) Publish(event string, payload interface{}) {
	msg, err := json.Marshal(Message{Event: event, Data: payload, At: time.Now()})
	if err != nil {
		log.Printf("[ws] marshal %s: %v", event, err)
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		log.Printf("[ws] broadcast buffer full, dropped %s", event)
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			log.Println("[ws] client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Handler serves one websocket connection until the client goes away.
// Clients only listen; anything they send is discarded.
func (h *Hub) Handler() func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		h.Register <- c
		defer func() { h.Unregister <- c }()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}
}
