package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-tracker/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type WebSocketHub struct {
	clients    map[*WebSocketClient]bool
	broadcast  chan models.Quote
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	subscribe  chan subscription
}

type WebSocketClient struct {
	hub      *WebSocketHub
	conn     *websocket.Conn
	send     chan []byte
	username string

	// symbols is the client's watch set. Empty means every quote.
	// Only the hub goroutine touches it after registration.
	symbols map[string]bool
}

// subscription carries a client's requested watch set to the hub.
type subscription struct {
	client  *WebSocketClient
	symbols []string
}

// clientMessage is a control message sent by a connected client.
type clientMessage struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan models.Quote),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		subscribe:  make(chan subscription),
	}
}

func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("Client connected. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Client disconnected. Total clients: %d", len(h.clients))
			}

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			watch := make(map[string]bool, len(sub.symbols))
			for _, symbol := range sub.symbols {
				symbol = normalizeSymbol(symbol)
				if symbol != "" {
					watch[symbol] = true
				}
			}
			sub.client.symbols = watch
			log.Printf("Client %s watching %d symbols", sub.client.username, len(watch))

		case quote := <-h.broadcast:
			message, err := json.Marshal(quote)
			if err != nil {
				log.Printf("Error marshaling quote: %v", err)
				continue
			}

			for client := range h.clients {
				if !client.wantsQuote(quote.Symbol) {
					continue
				}
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// wantsQuote reports whether the client should receive updates for
// symbol. Clients that never subscribed receive every quote.
func (c *WebSocketClient) wantsQuote(symbol string) bool {
	if len(c.symbols) == 0 {
		return true
	}
	return c.symbols[symbol]
}

func (h *WebSocketHub) BroadcastQuote(quote models.Quote) {
	h.broadcast <- quote
}

func (h *WebSocketHub) RegisterClient(conn *websocket.Conn, username string) *WebSocketClient {
	client := &WebSocketClient{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		username: username,
	}
	h.register <- client
	return client
}

func (c *WebSocketClient) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// handleMessage processes one control message from the client. The
// supported action is "subscribe", which replaces the watch set; an
// empty symbol list goes back to receiving every quote. Anything else
// is ignored.
func (c *WebSocketClient) handleMessage(raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Action != "subscribe" {
		return
	}
	c.hub.subscribe <- subscription{client: c, symbols: msg.Symbols}
}

func (c *WebSocketClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
