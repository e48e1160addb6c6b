package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chaindice-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler fans the live bet feed out to connected clients. It is
// the consumer end of the Redis event channel, so every API instance sees
// every event regardless of which instance settled the bet.
type WebSocketHandler struct {
	hub *webSocketHub
	log *zap.Logger
}

type webSocketHub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan models.BetEvent
}

type wsClient struct {
	wallet string
	conn   *websocket.Conn
}

func NewWebSocketHandler(log *zap.Logger) *WebSocketHandler {
	hub := &webSocketHub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan models.BetEvent, 100),
	}

	go hub.run()

	return &WebSocketHandler{hub: hub, log: log}
}

// Broadcast queues a bet event for every connected client. Never blocks
// the publisher: a full queue drops the event.
func (h *WebSocketHandler) Broadcast(event models.BetEvent) {
	select {
	case h.hub.broadcast <- event:
	default:
		h.log.Warn("bet feed queue full, event dropped", zap.String("bet_id", event.BetID))
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	wallet := c.GetString("wallet")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &wsClient{wallet: wallet, conn: conn}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket closed", zap.String("wallet", wallet), zap.Error(err))
			}
			break
		}

		if msg.Type == "PING" {
			conn.WriteJSON(gin.H{"type": "PONG", "timestamp": time.Now().Unix()})
		}
	}
}

func (hub *webSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client] = true

		case client := <-hub.unregister:
			delete(hub.clients, client)

		case event := <-hub.broadcast:
			for client := range hub.clients {
				if err := client.conn.WriteJSON(event); err != nil {
					client.conn.Close()
					delete(hub.clients, client)
				}
			}
		}
	}
}
