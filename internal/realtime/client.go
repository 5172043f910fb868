package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Message is the WebSocket message envelope.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatPolicy answers whether a participant may post chat messages in a
// webinar right now.
type ChatPolicy interface {
	ChatAllowed(ctx context.Context, webinarID uuid.UUID, role string) (bool, error)
}

// TokenValidator checks a session token and returns the caller's identity.
type TokenValidator func(token string) (userID uuid.UUID, role string, err error)

// Client is a single WebSocket connection in a webinar room.
type Client struct {
	ID        string
	WebinarID uuid.UUID
	UserID    uuid.UUID
	Role      string
	hub       *Hub
	chat      ChatPolicy
	conn      *websocket.Conn
	send      chan Message
	logger    *zap.Logger
}

// ServeWs upgrades the connection and runs the client read/write loops.
func ServeWs(hub *Hub, chat ChatPolicy, validate TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		webinarIDStr := c.Query("webinar_id")
		token := c.Query("token")
		if webinarIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "webinar_id and token required"})
			return
		}
		webinarID, err := uuid.Parse(webinarIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webinar_id"})
			return
		}
		userID, role, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			WebinarID: webinarID,
			UserID:    userID,
			Role:      role,
			hub:       hub,
			chat:      chat,
			conn:      conn,
			send:      make(chan Message, 256),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWaitSeconds * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWaitSeconds * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWaitSeconds * time.Second))

		switch msg.Event {
		case "join":
			c.hub.BroadcastAndPublish(c.WebinarID, "audience_count", map[string]int{
				"count": c.hub.AudienceCount(c.WebinarID),
			})
			c.hub.BroadcastAndPublish(c.WebinarID, "join", map[string]string{
				"user_id": c.UserID.String(),
				"role":    c.Role,
			})
		case "chat_message":
			c.handleChat(msg.Data)
		case "hand_raise", "reaction":
			c.hub.BroadcastAndPublish(c.WebinarID, msg.Event, json.RawMessage(msg.Data))
		default:
			// ignore
		}
	}
}

// handleChat enforces the room's chat lock before fanning the message out.
// Presenters always get through.
func (c *Client) handleChat(data json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	allowed := c.Role == string(models.RolePresenter)
	if !allowed && c.chat != nil {
		var err error
		allowed, err = c.chat.ChatAllowed(ctx, c.WebinarID, c.Role)
		if err != nil {
			c.logger.Warn("chat policy check failed",
				zap.String("webinar_id", c.WebinarID.String()), zap.Error(err))
			allowed = false
		}
	}
	if !allowed {
		c.hub.SendToClient(c.WebinarID, c.ID, "error", map[string]string{
			"message": "chat is locked by the presenter",
		})
		return
	}
	// Publish only: the subscriber callback broadcasts once for every
	// instance, this one included.
	c.hub.PublishOnly(c.WebinarID, "chat_message", data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingIntervalSeconds * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
