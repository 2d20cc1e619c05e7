package api

import (
	"bufio"
	"encoding/json"
	"sync"
	"time"

	"mailassist/middleware"
	"mailassist/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const (
	TypeStateChanged = "state_changed"

	subscriberBuffer  = 10
	keepAliveInterval = 30 * time.Second
)

// Notification represents a real-time notification
type Notification struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Time    time.Time              `json:"time"`
}

// NotificationHandler fans notifications out to the SSE and WebSocket
// subscribers of each panel session
type NotificationHandler struct {
	subscribers map[string]map[string]chan Notification
	mu          sync.RWMutex
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{
		subscribers: make(map[string]map[string]chan Notification),
	}
}

// Subscribe registers a listener for sessionID. The returned channel is
// closed by Unsubscribe.
func (h *NotificationHandler) Subscribe(sessionID string) (string, <-chan Notification) {
	subscriberID := uuid.New().String()
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.subscribers[sessionID]
	if !ok {
		subs = make(map[string]chan Notification)
		h.subscribers[sessionID] = subs
	}
	subs[subscriberID] = ch
	h.mu.Unlock()

	return subscriberID, ch
}

func (h *NotificationHandler) Unsubscribe(sessionID, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[sessionID]
	if !ok {
		return
	}
	if ch, ok := subs[subscriberID]; ok {
		close(ch)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(h.subscribers, sessionID)
	}
}

// Subscribers returns the number of listeners for sessionID
func (h *NotificationHandler) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}

// Publish sends n to every listener of sessionID. Listeners whose buffer
// is full miss the notification.
func (h *NotificationHandler) Publish(sessionID string, n Notification) {
	n.ID = uuid.New().String()
	n.Time = time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.subscribers[sessionID]
	utils.Log.Debug("Publishing notification: type=%s to %d subscribers", n.Type, len(subs))

	for subscriberID, ch := range subs {
		select {
		case ch <- n:
		default:
			utils.Log.Warn("Notification channel full for subscriber %s", subscriberID)
		}
	}
}

// NotifyStateChanged tells the session's pages to refresh
func (h *NotificationHandler) NotifyStateChanged(sessionID string) {
	h.Publish(sessionID, Notification{
		Type:    TypeStateChanged,
		Message: "Panel state changed",
	})
}

// HandleSSE streams the session's notifications as Server-Sent Events
func (h *NotificationHandler) HandleSSE(c *fiber.Ctx) error {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		return utils.BadRequestError("No panel session", nil)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		subscriberID, messages := h.Subscribe(sessionID)
		defer h.Unsubscribe(sessionID, subscriberID)

		utils.Log.Info("SSE subscriber connected: %s", subscriberID)
		defer utils.Log.Info("SSE subscriber disconnected: %s", subscriberID)

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case n, ok := <-messages:
				if !ok {
					return
				}
				data, err := json.Marshal(n)
				if err != nil {
					utils.Log.Error("Failed to encode notification: %v", err)
					continue
				}
				w.WriteString("event: " + n.Type + "\n")
				w.WriteString("data: " + string(data) + "\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ticker.C:
				w.WriteString(": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

// UpgradeWebSocket only lets WebSocket upgrades with a session through and
// hands the session id to the connection
func (h *NotificationHandler) UpgradeWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("ws_session", middleware.SessionID(c))
	return c.Next()
}

// HandleWebSocket pushes the session's notifications over a WebSocket until
// the client goes away
func (h *NotificationHandler) HandleWebSocket(c *websocket.Conn) {
	sessionID, _ := c.Locals("ws_session").(string)
	subscriberID, messages := h.Subscribe(sessionID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.Unsubscribe(sessionID, subscriberID)
		c.Close()
		utils.Log.Info("WebSocket subscriber disconnected: %s", subscriberID)
	}()

	utils.Log.Info("WebSocket subscriber connected: %s", subscriberID)

	for {
		select {
		case n, ok := <-messages:
			if !ok {
				return
			}
			if err := c.WriteJSON(n); err != nil {
				utils.Log.Error("Failed to send WebSocket notification: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
