package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dojobill/dojobill/internal/config"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/pubsub"
	"github.com/dojobill/dojobill/internal/types"
)

// Publisher produces billing events for the notification dispatcher.
// Delivery (email, push) is entirely the dispatcher's concern.
type Publisher interface {
	Publish(ctx context.Context, event *types.NotificationEvent) error
	Close() error
}

type publisher struct {
	pubSub pubsub.PubSub
	topic  string
	logger *logger.Logger
}

// NewPublisher creates a pubsub-backed notification publisher
func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) Publisher {
	return &publisher{
		pubSub: pubSub,
		topic:  cfg.Notify.Topic,
		logger: logger,
	}
}

func (p *publisher) Publish(ctx context.Context, event *types.NotificationEvent) error {
	if event.ID == "" {
		event.ID = types.GenerateUUID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.UserID == "" {
		event.UserID = types.GetUserID(ctx)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	messageID := event.ID
	if messageID == "" {
		messageID = watermill.NewUUID()
	}

	msg := message.NewMessage(messageID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("event_name", event.EventName)

	p.logger.Debugw("publishing notification event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"tenant_id", event.TenantID,
		"topic", p.topic,
	)

	return p.pubSub.Publish(ctx, p.topic, msg)
}

func (p *publisher) Close() error {
	return p.pubSub.Close()
}
