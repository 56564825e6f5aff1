package eventsvc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/entity"
	"ticketing/pubsub"
)

type refundStoreFake struct {
	nextID     int
	created    []entity.RefundRequest
	createErr  error
	eventNames map[int]string
}

func (f *refundStoreFake) Create(_ context.Context, refund entity.RefundRequest) (entity.RefundRequest, error) {
	if f.createErr != nil {
		return entity.RefundRequest{}, f.createErr
	}
	f.nextID++
	refund.ID = f.nextID
	refund.Status = entity.RefundStatusPending
	refund.CreatedAt = time.Now()
	f.created = append(f.created, refund)
	return refund, nil
}

func (f *refundStoreFake) EventNameFor(_ context.Context, refund entity.RefundRequest) (string, error) {
	if refund.EventID == nil {
		return "", entity.ErrNotFound
	}
	name, ok := f.eventNames[*refund.EventID]
	if !ok {
		return "", entity.ErrNotFound
	}
	return name, nil
}

type capturingPublisher struct {
	mu        sync.Mutex
	published map[string][]*message.Message
	err       error
}

func (p *capturingPublisher) Publish(topic string, messages ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published == nil {
		p.published = map[string][]*message.Message{}
	}
	p.published[topic] = append(p.published[topic], messages...)
	return nil
}

func (p *capturingPublisher) Close() error {
	return nil
}

func (p *capturingPublisher) topicMessages(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[topic]
}

func requestedMessage(t *testing.T, requested entity.RefundRequested) *message.Message {
	t.Helper()

	payload, err := json.Marshal(requested)
	require.NoError(t, err)
	return message.NewMessage("1", payload)
}

func TestConsumer_persistsAndNotifiesBothSides(t *testing.T) {
	eventID := 5
	store := &refundStoreFake{eventNames: map[int]string{eventID: "Jazz Night"}}
	publisher := &capturingPublisher{}
	consumer := NewConsumer(store, publisher)

	err := consumer.OnRefundRequested(requestedMessage(t, entity.RefundRequested{
		TicketCode:     "ABC123",
		RequesterID:    42,
		RequesterEmail: "client@example.com",
		EventID:        &eventID,
		EventOwnerID:   9,
		Reason:         "wrong date",
	}))
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Equal(t, entity.RefundStatusPending, store.created[0].Status)

	broadcasts := lo.Map(
		publisher.topicMessages(pubsub.TopicWSBroadcast),
		func(msg *message.Message, _ int) entity.WebSocketMessage {
			var decoded entity.WebSocketMessage
			require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
			return decoded
		},
	)
	require.Len(t, broadcasts, 2)

	toOwner, ok := lo.Find(broadcasts, func(m entity.WebSocketMessage) bool {
		return m.Type == entity.MessageTypeNewRefundRequest
	})
	require.True(t, ok, "new refund request broadcast not found")
	owner, err := toOwner.TargetUserID()
	require.NoError(t, err)
	assert.Equal(t, 9, owner)

	toRequester, ok := lo.Find(broadcasts, func(m entity.WebSocketMessage) bool {
		return m.Type == entity.MessageTypeRefundStatusChanged
	})
	require.True(t, ok, "status changed broadcast not found")
	requester, err := toRequester.TargetUserID()
	require.NoError(t, err)
	assert.Equal(t, 42, requester)
	assert.Equal(t, "PENDING", toRequester.RefundStatusChanged.Status)
	require.NotNil(t, toRequester.RefundStatusChanged.EventName)
	assert.Equal(t, "Jazz Night", *toRequester.RefundStatusChanged.EventName)
}

func TestConsumer_storeFailureNacks(t *testing.T) {
	store := &refundStoreFake{createErr: errors.New("connection reset")}
	publisher := &capturingPublisher{}
	consumer := NewConsumer(store, publisher)

	err := consumer.OnRefundRequested(requestedMessage(t, entity.RefundRequested{
		TicketCode:   "ABC123",
		EventOwnerID: 9,
		Reason:       "wrong date",
	}))
	require.Error(t, err)
	assert.Empty(t, publisher.topicMessages(pubsub.TopicWSBroadcast))
}

func TestConsumer_acksPoisonMessages(t *testing.T) {
	store := &refundStoreFake{}
	consumer := NewConsumer(store, &capturingPublisher{})

	err := consumer.OnRefundRequested(message.NewMessage("1", []byte("not json")))
	assert.NoError(t, err)
	assert.Empty(t, store.created)
}

func TestConsumer_broadcastFailureDoesNotNack(t *testing.T) {
	store := &refundStoreFake{eventNames: map[int]string{}}
	publisher := &capturingPublisher{err: pubsub.ErrBusUnavailable}
	consumer := NewConsumer(store, publisher)

	// the request is persisted even when the notification cannot go out
	err := consumer.OnRefundRequested(requestedMessage(t, entity.RefundRequested{
		TicketCode:   "ABC123",
		EventOwnerID: 9,
		Reason:       "wrong date",
	}))
	require.NoError(t, err)
	assert.Len(t, store.created, 1)
}
