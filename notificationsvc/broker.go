package notificationsvc

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"

	"ticketing/entity"
	"ticketing/pubsub"
)

// Broker fans ws.broadcast messages out to the target user's live
// connections. Every message is acknowledged immediately: an offline user
// simply misses the notification.
type Broker struct {
	registry *Registry
}

func NewBroker(registry *Registry) *Broker {
	return &Broker{registry: registry}
}

func (b *Broker) AddHandlers(router *message.Router, subscriber message.Subscriber) {
	router.AddNoPublisherHandler(
		"notification.OnBroadcast",
		pubsub.TopicWSBroadcast,
		subscriber,
		b.OnBroadcast,
	)
}

func (b *Broker) OnBroadcast(msg *message.Message) error {
	ctx := msg.Context()

	var wsMessage entity.WebSocketMessage
	if err := json.Unmarshal(msg.Payload, &wsMessage); err != nil {
		log.FromContext(ctx).WithError(err).Warn("discarding undecodable ws.broadcast message")
		return nil
	}

	userID, err := wsMessage.TargetUserID()
	if err != nil {
		log.FromContext(ctx).WithError(err).Warn("discarding unroutable ws.broadcast message")
		return nil
	}

	delivered := b.registry.BroadcastToUser(ctx, userID, msg.Payload)
	log.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":   userID,
		"type":      wsMessage.Type,
		"delivered": delivered,
	}).Info("broadcast handled")

	return nil
}
