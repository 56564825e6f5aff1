package emailsvc

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	"ticketing/entity"
	"ticketing/metrics"
	"ticketing/pubsub"
	"ticketing/worker"
)

// Consumer turns resolved refunds into emails. The message is acknowledged as
// soon as the email is handed to the worker pool, so each resolution produces
// at most one email.
type Consumer struct {
	mailer Mailer
	pool   *worker.Pool
}

func NewConsumer(mailer Mailer, pool *worker.Pool) *Consumer {
	return &Consumer{
		mailer: mailer,
		pool:   pool,
	}
}

func (c *Consumer) AddHandlers(router *message.Router, subscriber message.Subscriber) {
	router.AddNoPublisherHandler(
		"email.OnRefundResolved",
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

	data := emailData{
		EventName:  "your event",
		TicketCode: resolved.TicketCode,
	}
	if resolved.EventName != nil {
		data.EventName = *resolved.EventName
	}
	if resolved.Message != nil {
		data.Message = *resolved.Message
	}

	var subject, body string
	var err error
	switch resolved.Status {
	case entity.RefundStatusApproved:
		subject = "Your refund has been approved"
		body, err = renderApproved(data)
	case entity.RefundStatusRejected:
		subject = "Your refund request has been declined"
		body, err = renderRejected(data)
	default:
		log.FromContext(ctx).WithField("status", resolved.Status).
			Warn("discarding refund.resolved message with unknown status")
		return nil
	}
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("could not render refund email")
		return nil
	}

	to := resolved.RequesterEmail
	status := string(resolved.Status)

	c.pool.Submit(ctx, func(taskCtx context.Context) {
		labels := prometheus.Labels{"status": status}
		if err := c.mailer.Send(taskCtx, to, subject, body); err != nil {
			metrics.EmailsFailed.With(labels).Inc()
			log.FromContext(taskCtx).WithError(err).
				WithField("to", to).
				Error("could not send refund email")
			return
		}
		metrics.EmailsSent.With(labels).Inc()
	})

	return nil
}
