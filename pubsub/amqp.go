package pubsub

import (
	"errors"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v2/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"ticketing/tracing"
)

// ErrBusUnavailable is returned by the degraded-mode publisher when the
// broker could not be reached at startup.
var ErrBusUnavailable = errors.New("message bus unavailable")

func newConfig(amqpURL, queueName string) amqp.Config {
	cfg := amqp.NewDurablePubSubConfig(amqpURL, amqp.GenerateQueueNameConstant(queueName))

	cfg.Exchange = amqp.ExchangeConfig{
		GenerateName: func(string) string { return Exchange },
		Type:         "topic",
		Durable:      true,
	}
	cfg.QueueBind.GenerateRoutingKey = func(topic string) string { return topic }
	cfg.Publish.GenerateRoutingKey = func(topic string) string { return topic }
	cfg.Marshaler = amqp.DefaultMarshaler{
		PostprocessPublishing: func(publishing amqp091.Publishing) amqp091.Publishing {
			publishing.ContentType = "application/json"
			return publishing
		},
	}

	return cfg
}

// NewPublisher connects to the broker and returns a publisher that stamps
// outgoing messages with the correlation ID and trace context.
func NewPublisher(amqpURL string, watermillLogger watermill.LoggerAdapter) (message.Publisher, error) {
	var publisher message.Publisher
	publisher, err := amqp.NewPublisher(newConfig(amqpURL, ""), watermillLogger)
	if err != nil {
		return nil, err
	}

	publisher = log.CorrelationPublisherDecorator{Publisher: publisher}
	publisher = tracing.PublisherDecorator{Publisher: publisher}
	return publisher, nil
}

// NewSubscriber consumes from a single durable queue. The queue is bound to
// the exchange with the subscribed topic as the routing key, so two queues
// bound to the same topic each get a copy of every message.
func NewSubscriber(amqpURL, queueName string, watermillLogger watermill.LoggerAdapter) (message.Subscriber, error) {
	return amqp.NewSubscriber(newConfig(amqpURL, queueName), watermillLogger)
}

// UnavailablePublisher stands in for the real publisher when the service
// starts without a broker connection.
type UnavailablePublisher struct{}

func (UnavailablePublisher) Publish(topic string, messages ...*message.Message) error {
	return ErrBusUnavailable
}

func (UnavailablePublisher) Close() error {
	return nil
}
