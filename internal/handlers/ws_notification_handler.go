package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	jwtutil "github.com/dxsocial/backend/pkg/jwt"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSMessage is a frame sent to notification sockets.
type WSMessage struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// NotificationHub keeps the open notification sockets, keyed by wallet address.
// A wallet may hold several connections.
type NotificationHub struct {
	mu        sync.Mutex
	clients   map[string]map[*websocket.Conn]bool
	jwtSecret string
}

func NewNotificationHub(jwtSecret string) *NotificationHub {
	return &NotificationHub{
		clients:   make(map[string]map[*websocket.Conn]bool),
		jwtSecret: jwtSecret,
	}
}

// Push sends n to every open socket of recipient. Broken sockets are dropped.
func (h *NotificationHub) Push(recipient string, n *models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients[recipient] {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(WSMessage{Type: "notification", Notification: n}); err != nil {
			logrus.WithFields(logrus.Fields{
				"address": recipient,
				"error":   err,
			}).Debug("Dropping notification socket")
			conn.Close()
			delete(h.clients[recipient], conn)
		}
	}
	if len(h.clients[recipient]) == 0 {
		delete(h.clients, recipient)
	}
}

// Connected returns the number of open sockets of address.
func (h *NotificationHub) Connected(address string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[address])
}

func (h *NotificationHub) add(address string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[address] == nil {
		h.clients[address] = make(map[*websocket.Conn]bool)
	}
	h.clients[address][conn] = true
}

func (h *NotificationHub) remove(address string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[address], conn)
	if len(h.clients[address]) == 0 {
		delete(h.clients, address)
	}
}

// Close drops every socket, for shutdown.
func (h *NotificationHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for address, conns := range h.clients {
		for conn := range conns {
			conn.Close()
		}
		delete(h.clients, address)
	}
}

// ServeWS upgrades an authenticated request. GET /ws/notifications?token=
func (h *NotificationHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		apperr.WriteError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	claims, err := jwtutil.ValidateToken(token, h.jwtSecret)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket auth failed")
		apperr.WriteError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	address := claims.Address

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.add(address, conn)
	logrus.WithField("address", address).Info("Notification socket connected")

	h.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err = conn.WriteJSON(WSMessage{Type: "connected"})
	h.mu.Unlock()
	if err != nil {
		h.remove(address, conn)
		conn.Close()
		return
	}

	defer func() {
		h.remove(address, conn)
		conn.Close()
		logrus.WithField("address", address).Info("Notification socket disconnected")
	}()

	// Clients never send anything meaningful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
