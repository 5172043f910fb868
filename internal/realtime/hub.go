package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/models"
)

const (
	pingIntervalSeconds = 30
	pongWaitSeconds     = 60
)

// Publisher publishes events to other instances.
type Publisher interface {
	PublishWebinarEvent(webinarID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to a webinar channel and invokes handler for each
// incoming event. The returned cancel stops the subscription.
type Subscriber interface {
	SubscribeWebinar(webinarID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maps webinars to their connected clients and fans events out to them,
// bridging through Redis pub/sub so every instance sees every event.
type Hub struct {
	rooms  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	pub    Publisher
	sub    Subscriber
	logger *zap.Logger
}

// NewHub creates a hub. pub and sub may be nil, in which case events stay
// local to this instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		pub:    pub,
		sub:    sub,
		logger: logger,
	}
}

// Register adds a client to its webinar room, opening the Redis subscription
// when it is the room's first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.WebinarID] == nil {
		h.rooms[c.WebinarID] = make(map[string]*Client)
		if h.sub != nil {
			webinarID := c.WebinarID
			cancel, err := h.sub.SubscribeWebinar(webinarID, func(event string, payload []byte) {
				h.Broadcast(webinarID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[webinarID] = cancel
			} else {
				h.logger.Warn("webinar subscription failed",
					zap.String("webinar_id", webinarID.String()), zap.Error(err))
			}
		}
	}
	h.rooms[c.WebinarID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined",
		zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

// Unregister removes a client, closing the Redis subscription when the room
// empties.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.WebinarID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(h.rooms, c.WebinarID)
			if cancel, ok := h.subs[c.WebinarID]; ok {
				cancel()
				delete(h.subs, c.WebinarID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left",
		zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

// Broadcast delivers an event to all local clients of a webinar.
func (h *Hub) Broadcast(webinarID uuid.UUID, event string, payload interface{}) {
	data := encodePayload(payload)
	msg := Message{Event: event, Data: data}

	// Snapshot the room under the lock; Register/Unregister mutate the map.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[webinarID]))
	for _, c := range h.rooms[webinarID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// slow consumer, drop
		}
	}
}

// BroadcastAndPublish delivers locally and publishes for other instances.
func (h *Hub) BroadcastAndPublish(webinarID uuid.UUID, event string, payload interface{}) {
	h.Broadcast(webinarID, event, payload)
	if h.pub != nil {
		_ = h.pub.PublishWebinarEvent(webinarID, event, encodePayload(payload))
	}
}

// PublishOnly publishes to Redis without a local broadcast. Chat messages go
// through here so the subscriber callback delivers them exactly once,
// including to this instance's own clients.
func (h *Hub) PublishOnly(webinarID uuid.UUID, event string, payload interface{}) {
	if h.pub != nil {
		_ = h.pub.PublishWebinarEvent(webinarID, event, encodePayload(payload))
		return
	}
	h.Broadcast(webinarID, event, payload)
}

// SendToClient delivers an event to one client only.
func (h *Hub) SendToClient(webinarID uuid.UUID, clientID, event string, payload interface{}) {
	msg := Message{Event: event, Data: encodePayload(payload)}
	h.mu.RLock()
	c := h.rooms[webinarID][clientID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// AudienceCount reports connected clients for a webinar on this instance.
func (h *Hub) AudienceCount(webinarID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[webinarID])
}

// NotifyStatus broadcasts a webinar lifecycle change to everyone in the room.
func (h *Hub) NotifyStatus(webinarID uuid.UUID, status models.WebinarStatus) {
	h.BroadcastAndPublish(webinarID, "webinar_status", map[string]string{
		"webinar_id": webinarID.String(),
		"status":     string(status),
	})
}

func encodePayload(payload interface{}) json.RawMessage {
	switch v := payload.(type) {
	case []byte:
		return v
	case json.RawMessage:
		return v
	default:
		data, _ := json.Marshal(payload)
		return data
	}
}
