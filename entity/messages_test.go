package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketMessage_typeTagIsInlined(t *testing.T) {
	name := "Jazz Night"
	note := "Your refund has been approved"

	msg := NewRefundStatusChangedMessage(RefundStatusChanged{
		RequestID:  7,
		TicketCode: "ABC123",
		Status:     "APPROVED",
		EventName:  &name,
		Message:    &note,
		UserID:     42,
	})

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	// the variant's fields and the tag live in the same flat object
	assert.Equal(t, "refund_status_changed", fields["type"])
	assert.Equal(t, "ABC123", fields["ticket_cod"])
	assert.Equal(t, float64(42), fields["user_id"])
}

func TestWebSocketMessage_roundTrip(t *testing.T) {
	original := NewRefundRequestMessage(NewRefundRequest{
		RequestID:      3,
		TicketCode:     "XYZ789",
		RequesterEmail: "client@example.com",
		Reason:         "wrong date",
		EventOwnerID:   9,
	})

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded WebSocketMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, original.Type, decoded.Type)
	require.NotNil(t, decoded.NewRefundRequest)
	assert.Equal(t, "XYZ789", decoded.NewRefundRequest.TicketCode)
}

func TestWebSocketMessage_TargetUserID(t *testing.T) {
	statusChanged := NewRefundStatusChangedMessage(RefundStatusChanged{UserID: 42})
	userID, err := statusChanged.TargetUserID()
	require.NoError(t, err)
	assert.Equal(t, 42, userID)

	newRequest := NewRefundRequestMessage(NewRefundRequest{EventOwnerID: 9})
	userID, err = newRequest.TargetUserID()
	require.NoError(t, err)
	assert.Equal(t, 9, userID)

	_, err = WebSocketMessage{Type: "unknown"}.TargetUserID()
	assert.Error(t, err)
}

func TestWebSocketMessage_unknownTypeIsRejected(t *testing.T) {
	var decoded WebSocketMessage
	err := json.Unmarshal([]byte(`{"type":"mystery"}`), &decoded)
	assert.Error(t, err)
}
