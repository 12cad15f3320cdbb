package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// eventEnvelope is the wire form of a domain event.
type eventEnvelope struct {
	ID         string       `json:"id"`
	EntityID   string       `json:"entityId"`
	EntityType string       `json:"entityType"`
	Type       string       `json:"type"`
	Data       domain.Event `json:"data"`
	Time       int64        `json:"time"`
}

// EventBus delivers domain events to the durable events queue and the live
// redis channel. Delivery is best-effort: failures are logged, never
// surfaced to the emitting operation.
type EventBus struct {
	queue   *azqueue.QueueClient
	redis   *redis.Client
	channel string
	log     *log.Logger
}

// NewEventBus creates an EventBus. queue and redis may each be nil, which
// disables that delivery path.
func NewEventBus(queue *azqueue.QueueClient, rc *redis.Client, channel string, logger *log.Logger) *EventBus {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &EventBus{queue: queue, redis: rc, channel: channel, log: logger}
}

// Trigger marshals the event envelope and fans it out.
func (b *EventBus) Trigger(ctx context.Context, ev domain.Event) {
	env := eventEnvelope{
		ID:         uuid.NewString(),
		EntityID:   ev.Task.ID,
		EntityType: "task",
		Type:       string(ev.Kind),
		Data:       ev,
		Time:       time.Now().UnixNano(),
	}
	payload, err := sonic.Marshal(env)
	if err != nil {
		b.log.WithFields(log.Fields{"kind": ev.Kind, "error": err}).Error("marshal event")
		return
	}

	if b.queue != nil {
		if _, err := b.queue.EnqueueMessage(ctx, string(payload), nil); err != nil {
			b.log.WithFields(log.Fields{"kind": ev.Kind, "error": err}).Error("enqueue event")
		}
	}
	if b.redis != nil {
		if err := b.redis.Publish(ctx, b.channel, payload).Err(); err != nil {
			b.log.WithFields(log.Fields{"kind": ev.Kind, "channel": b.channel, "error": err}).Error("publish event")
		}
	}
}
