package pubsub

// Exchange is the durable topic exchange all refund messages flow through.
// Routing keys double as watermill topics.
const Exchange = "refund.exchange"

const (
	TopicRefundRequested = "refund.requested"
	TopicRefundResolved  = "refund.resolved"
	TopicWSBroadcast     = "ws.broadcast"
)

// One durable queue per consumer. Two queues bound to the same routing key
// fan the message out; redeliveries go back to the queue that nacked.
const (
	QueueRefundRequested      = "refund.requested.queue"
	QueueRefundResolvedEmail  = "refund.resolved.email.queue"
	QueueRefundResolvedClient = "refund.resolved.client.queue"
	QueueWSBroadcast          = "ws.broadcast.queue"
)
