package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"bugalou/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventMessageCreated = "message_created"
	EventMessageStatus  = "message_status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// Client is one dashboard connection, scoped to a company.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	companyID string
	send      chan []byte
}

type envelope struct {
	companyID string
	payload   []byte
}

// Hub fans message events out to the dashboards of the owning company.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			zap.L().Debug("ws: client registered", zap.String("companyId", client.companyID))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			zap.L().Debug("ws: client unregistered", zap.String("companyId", client.companyID))
		case env := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.companyID != env.companyID {
					continue
				}
				select {
				case client.send <- env.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount reports the connected clients of a company.
func (h *Hub) ClientCount(companyID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for client := range h.clients {
		if client.companyID == companyID {
			n++
		}
	}
	return n
}

type WSEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BroadcastEvent queues an event for the company's dashboards. It drops the
// event when the queue is full instead of blocking the caller.
func (h *Hub) BroadcastEvent(companyID, eventType string, data interface{}) {
	payload, err := json.Marshal(WSEvent{Type: eventType, Data: data})
	if err != nil {
		zap.L().Error("ws: marshal event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{companyID: companyID, payload: payload}:
	default:
		zap.L().Warn("ws: broadcast queue full, event dropped", zap.String("type", eventType))
	}
}

func (h *Hub) NotifyMessage(msg models.Message) {
	h.BroadcastEvent(msg.CompanyID, EventMessageCreated, msg)
}

func (h *Hub) NotifyStatus(msg models.Message) {
	h.BroadcastEvent(msg.CompanyID, EventMessageStatus, msg)
}

// ServeWs upgrades the request and streams the company's events to it.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, companyID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws: upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: h, conn: conn, companyID: companyID, send: make(chan []byte, 256)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// Clients only send pings; reading detects the close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
