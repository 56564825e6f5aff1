package clientsvc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"

	"ticketing/entity"
	"ticketing/pubsub"
)

type ConsumerRepository interface {
	FindByTicketCode(ctx context.Context, code string) (entity.Client, error)
	RemoveTicket(ctx context.Context, clientID int, code string) error
	UpdateTicketRefundStatus(ctx context.Context, clientID int, code string, status entity.RefundStatus) error
}

// Consumer applies resolved refunds to client profiles.
type Consumer struct {
	repo ConsumerRepository
}

func NewConsumer(repo ConsumerRepository) *Consumer {
	return &Consumer{repo: repo}
}

func (c *Consumer) AddHandlers(router *message.Router, subscriber message.Subscriber) {
	router.AddNoPublisherHandler(
		"client_profile.OnRefundResolved",
		pubsub.TopicRefundResolved,
		subscriber,
		c.OnRefundResolved,
	)
}

func (c *Consumer) OnRefundResolved(msg *message.Message) error {
	ctx := msg.Context()

	var resolved entity.RefundResolved
	if err := json.Unmarshal(msg.Payload, &resolved); err != nil {
		log.FromContext(ctx).WithError(err).Warn("discarding undecodable refund.resolved message")
		return nil
	}

	client, err := c.repo.FindByTicketCode(ctx, resolved.TicketCode)
	if errors.Is(err, entity.ErrNotFound) {
		// the reference may already be gone after a redelivery
		log.FromContext(ctx).WithField("ticket_cod", resolved.TicketCode).
			Info("no client holds the refunded ticket, nothing to update")
		return nil
	}
	if err != nil {
		return err
	}

	switch resolved.Status {
	case entity.RefundStatusApproved:
		return c.repo.RemoveTicket(ctx, client.ID, resolved.TicketCode)
	case entity.RefundStatusRejected:
		return c.repo.UpdateTicketRefundStatus(ctx, client.ID, resolved.TicketCode, entity.RefundStatusRejected)
	default:
		log.FromContext(ctx).WithField("status", resolved.Status).
			Warn("discarding refund.resolved message with unknown status")
		return nil
	}
}
