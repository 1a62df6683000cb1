package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"casa-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub pushes engine events to connected users. It implements the engine's
// Notifier: a user with no connection is not a delivery failure, only a
// failed write to a live connection is.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*wsClient
	log     *zap.Logger
}

type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]*wsClient),
		log:     log,
	}
}

func (h *Hub) Notify(userID int64, event models.Event) error {
	h.mu.RLock()
	cl, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := cl.conn.WriteJSON(event); err != nil {
		h.drop(userID, cl)
		return err
	}
	return nil
}

func (h *Hub) register(userID int64, conn *websocket.Conn) *wsClient {
	cl := &wsClient{conn: conn}
	h.mu.Lock()
	if old, ok := h.clients[userID]; ok {
		old.conn.Close()
	}
	h.clients[userID] = cl
	h.mu.Unlock()
	return cl
}

func (h *Hub) drop(userID int64, cl *wsClient) {
	h.mu.Lock()
	if cur, ok := h.clients[userID]; ok && cur == cl {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
	cl.conn.Close()
}

type WebSocketHandler struct {
	hub *Hub
}

func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := h.hub.register(userID, conn)
	defer h.hub.drop(userID, cl)

	// Clients only receive; drain reads to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
