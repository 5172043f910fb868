package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/models"
)

func newTestClient(webinarID uuid.UUID) *Client {
	return &Client{
		ID:        uuid.NewString(),
		WebinarID: webinarID,
		UserID:    uuid.New(),
		Role:      "attendee",
		send:      make(chan Message, 8),
	}
}

func TestHubRegisterAndBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	webinarID := uuid.New()

	a := newTestClient(webinarID)
	b := newTestClient(webinarID)
	other := newTestClient(uuid.New())
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	require.Equal(t, 2, hub.AudienceCount(webinarID))

	hub.Broadcast(webinarID, "chat_message", map[string]string{"text": "hello"})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			require.Equal(t, "chat_message", msg.Event)
			var data map[string]string
			require.NoError(t, json.Unmarshal(msg.Data, &data))
			require.Equal(t, "hello", data["text"])
		default:
			t.Fatal("expected a delivered message")
		}
	}
	require.Empty(t, other.send, "other rooms must not receive the event")

	hub.Unregister(a)
	require.Equal(t, 1, hub.AudienceCount(webinarID))
}

func TestHubSendToClient(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	webinarID := uuid.New()

	a := newTestClient(webinarID)
	b := newTestClient(webinarID)
	hub.Register(a)
	hub.Register(b)

	hub.SendToClient(webinarID, a.ID, "error", map[string]string{"message": "chat is locked by the presenter"})

	require.Len(t, a.send, 1)
	require.Empty(t, b.send)
}

func TestNotifyStatusBroadcastsEvent(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	webinarID := uuid.New()

	c := newTestClient(webinarID)
	hub.Register(c)

	hub.NotifyStatus(webinarID, models.StatusLive)

	select {
	case msg := <-c.send:
		require.Equal(t, "webinar_status", msg.Event)
		var data map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		require.Equal(t, "live", data["status"])
		require.Equal(t, webinarID.String(), data["webinar_id"])
	default:
		t.Fatal("expected a status event")
	}
}

func TestPublishOnlyFallsBackToLocalWithoutRedis(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	webinarID := uuid.New()

	c := newTestClient(webinarID)
	hub.Register(c)

	hub.PublishOnly(webinarID, "chat_message", map[string]string{"text": "hi"})
	require.Len(t, c.send, 1)
}

func TestBroadcastDuringMembershipChurn(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	webinarID := uuid.New()

	anchor := newTestClient(webinarID)
	hub.Register(anchor)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c := newTestClient(webinarID)
			hub.Register(c)
			hub.Unregister(c)
		}
	}()
	for i := 0; i < 200; i++ {
		hub.Broadcast(webinarID, "reaction", map[string]string{"emoji": "clap"})
	}
	<-done

	require.Equal(t, 1, hub.AudienceCount(webinarID))
}
