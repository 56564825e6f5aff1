package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"

	"ticketing/entity"
	"ticketing/pubsub"
)

type ConsumerRepository interface {
	Create(ctx context.Context, refund entity.RefundRequest) (entity.RefundRequest, error)
	EventNameFor(ctx context.Context, refund entity.RefundRequest) (string, error)
}

// Consumer persists incoming refund requests and notifies both sides of the
// request over the broadcast topic.
type Consumer struct {
	repo      ConsumerRepository
	publisher message.Publisher
}

func NewConsumer(repo ConsumerRepository, publisher message.Publisher) *Consumer {
	return &Consumer{
		repo:      repo,
		publisher: publisher,
	}
}

func (c *Consumer) AddHandlers(router *message.Router, subscriber message.Subscriber) {
	router.AddNoPublisherHandler(
		"refund_store.OnRefundRequested",
		pubsub.TopicRefundRequested,
		subscriber,
		c.OnRefundRequested,
	)
}

func (c *Consumer) OnRefundRequested(msg *message.Message) error {
	ctx := msg.Context()

	var requested entity.RefundRequested
	if err := json.Unmarshal(msg.Payload, &requested); err != nil {
		log.FromContext(ctx).WithError(err).Warn("discarding undecodable refund.requested message")
		return nil
	}

	created, err := c.repo.Create(ctx, entity.RefundRequest{
		TicketCode:     requested.TicketCode,
		RequesterID:    requested.RequesterID,
		RequesterEmail: requested.RequesterEmail,
		EventID:        requested.EventID,
		PacketID:       requested.PacketID,
		EventOwnerID:   requested.EventOwnerID,
		Reason:         requested.Reason,
	})
	if err != nil {
		return err
	}

	var eventName *string
	if name, err := c.repo.EventNameFor(ctx, created); err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not resolve event name for broadcast")
	} else {
		eventName = &name
	}

	c.broadcast(ctx, entity.NewRefundRequestMessage(entity.NewRefundRequest{
		RequestID:      created.ID,
		TicketCode:     created.TicketCode,
		RequesterEmail: created.RequesterEmail,
		EventID:        created.EventID,
		PacketID:       created.PacketID,
		Reason:         created.Reason,
		CreatedAt:      created.CreatedAt.Format(time.RFC3339),
		EventOwnerID:   created.EventOwnerID,
	}))

	submitted := "Your refund request has been submitted"
	c.broadcast(ctx, entity.NewRefundStatusChangedMessage(entity.RefundStatusChanged{
		RequestID:  created.ID,
		TicketCode: created.TicketCode,
		Status:     string(entity.RefundStatusPending),
		EventName:  eventName,
		Message:    &submitted,
		UserID:     created.RequesterID,
	}))

	return nil
}

// broadcast is best-effort, an undelivered notification is logged and
// forgotten.
func (c *Consumer) broadcast(ctx context.Context, wsMessage entity.WebSocketMessage) {
	msg, err := pubsub.NewJSONMessage(wsMessage)
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("could not marshal websocket broadcast")
		return
	}
	msg.SetContext(ctx)

	if err := c.publisher.Publish(pubsub.TopicWSBroadcast, msg); err != nil {
		log.FromContext(ctx).WithError(err).Error("could not publish websocket broadcast")
	}
}
