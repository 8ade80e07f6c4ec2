package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/metrics"
)

const (
	relayChannel   = "rooms:events"
	publishTimeout = 2 * time.Second
)

// relayMessage is the cross-instance wire format. Payload carries the
// client-facing envelope verbatim so receiving instances deliver it without
// re-encoding.
type relayMessage struct {
	InstanceID uuid.UUID       `json:"instanceId"`
	QuestionID uuid.UUID       `json:"questionId"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
}

// Relay is an EventSink that fans events out locally through the hub and
// mirrors them to every other instance over a Redis channel. Exclude-self
// semantics apply only on the publishing instance; the excluded connection
// cannot live anywhere else.
type Relay struct {
	hub        *Hub
	redis      *redis.Client
	instanceID uuid.UUID
	breaker    *gobreaker.CircuitBreaker
}

var _ domain.EventSink = (*Relay)(nil)

func NewRelay(hub *Hub, redisClient *redis.Client) *Relay {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "relay-publish",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Relay circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &Relay{
		hub:        hub,
		redis:      redisClient,
		instanceID: uuid.New(),
		breaker:    breaker,
	}
}

// Publish delivers the event to the local hub and mirrors it to the other
// instances. The mirror leg is fire and forget; a Redis outage degrades the
// bus to single-instance delivery instead of failing the caller.
func (r *Relay) Publish(questionID uuid.UUID, event domain.Event, exclude uuid.UUID) {
	r.hub.Publish(questionID, event, exclude)

	payload, err := json.Marshal(envelope{Event: event.EventName(), Data: event})
	if err != nil {
		slog.Error("Failed to marshal relay payload", "event", event.EventName(), "error", err)
		return
	}

	message, err := json.Marshal(relayMessage{
		InstanceID: r.instanceID,
		QuestionID: questionID,
		Event:      event.EventName(),
		Payload:    payload,
	})
	if err != nil {
		slog.Error("Failed to marshal relay message", "event", event.EventName(), "error", err)
		return
	}

	go r.mirror(event.EventName(), message)
}

func (r *Relay) mirror(eventName string, message []byte) {
	_, err := r.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		return nil, r.redis.Publish(ctx, relayChannel, message).Err()
	})
	if err != nil {
		metrics.RelayDroppedTotal.Inc()
		slog.Warn("Failed to mirror event to other instances", "event", eventName, "error", err)
		return
	}
	metrics.RelayPublishedTotal.Inc()
}

// Start listens for events mirrored by other instances and replays them into
// the local hub. Blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	pubsub := r.redis.Subscribe(ctx, relayChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			r.handleMessage(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) handleMessage(payload string) {
	var message relayMessage
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		slog.Warn("Invalid relay message", "error", err)
		return
	}

	// Own messages already went to the local hub.
	if message.InstanceID == r.instanceID {
		return
	}

	metrics.RelayReceivedTotal.Inc()
	r.hub.PublishRaw(message.QuestionID, message.Event, message.Payload)
}
