package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "webinar:"
	publishTimeout = 5 * time.Second
)

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// RedisBridge carries webinar events across instances over Redis pub/sub.
// It implements both Publisher and Subscriber.
type RedisBridge struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBridge creates the pub/sub bridge.
func NewRedisBridge(client *redis.Client, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{client: client, logger: logger}
}

// PublishWebinarEvent publishes an event to the webinar's channel.
func (b *RedisBridge) PublishWebinarEvent(webinarID uuid.UUID, event string, payload []byte) error {
	body, err := json.Marshal(wireEvent{Event: event, Data: payload, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return b.client.Publish(ctx, channelPrefix+webinarID.String(), body).Err()
}

// SubscribeWebinar subscribes to the webinar's channel and invokes handler
// for each event until cancel is called.
func (b *RedisBridge) SubscribeWebinar(webinarID uuid.UUID, handler func(event string, payload []byte)) (func(), error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := b.client.Subscribe(ctx, channelPrefix+webinarID.String())
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev wireEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("malformed webinar event", zap.Error(err))
					continue
				}
				handler(ev.Event, ev.Data)
			}
		}
	}()
	return cancelCtx, nil
}
