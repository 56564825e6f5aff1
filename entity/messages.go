package entity

import (
	"encoding/json"
	"fmt"
)

// RefundRequested is published by the client service when a refund passes
// local validation. request_id is 0 on the wire; the store assigns the real
// id when the inventory service persists the request.
type RefundRequested struct {
	RequestID      int    `json:"request_id"`
	TicketCode     string `json:"ticket_cod"`
	RequesterID    int    `json:"requester_id"`
	RequesterEmail string `json:"requester_email"`
	EventID        *int   `json:"event_id"`
	PacketID       *int   `json:"packet_id"`
	EventOwnerID   int    `json:"event_owner_id"`
	Reason         string `json:"reason"`
}

// RefundResolved is published by the inventory service after a request leaves
// PENDING. Message is the rejection message and is nil on approval.
type RefundResolved struct {
	RequestID      int          `json:"request_id"`
	TicketCode     string       `json:"ticket_cod"`
	RequesterEmail string       `json:"requester_email"`
	Status         RefundStatus `json:"status"`
	EventName      *string      `json:"event_name"`
	Message        *string      `json:"message"`
}

const (
	MessageTypeRefundStatusChanged = "refund_status_changed"
	MessageTypeNewRefundRequest    = "new_refund_request"
)

type RefundStatusChanged struct {
	RequestID  int     `json:"request_id"`
	TicketCode string  `json:"ticket_cod"`
	Status     string  `json:"status"`
	EventName  *string `json:"event_name"`
	Message    *string `json:"message"`
	UserID     int     `json:"user_id"`
}

type NewRefundRequest struct {
	RequestID      int    `json:"request_id"`
	TicketCode     string `json:"ticket_cod"`
	RequesterEmail string `json:"requester_email"`
	EventID        *int   `json:"event_id"`
	PacketID       *int   `json:"packet_id"`
	Reason         string `json:"reason"`
	CreatedAt      string `json:"created_at"`
	EventOwnerID   int    `json:"event_owner_id"`
}

// WebSocketMessage is the tagged union carried on ws.broadcast. The "type"
// field selects the variant; the variant's fields are inlined into the same
// JSON object.
type WebSocketMessage struct {
	Type string

	RefundStatusChanged *RefundStatusChanged
	NewRefundRequest    *NewRefundRequest
}

func NewRefundStatusChangedMessage(payload RefundStatusChanged) WebSocketMessage {
	return WebSocketMessage{
		Type:                MessageTypeRefundStatusChanged,
		RefundStatusChanged: &payload,
	}
}

func NewRefundRequestMessage(payload NewRefundRequest) WebSocketMessage {
	return WebSocketMessage{
		Type:             MessageTypeNewRefundRequest,
		NewRefundRequest: &payload,
	}
}

// TargetUserID returns the user the notification is addressed to.
func (m WebSocketMessage) TargetUserID() (int, error) {
	switch m.Type {
	case MessageTypeRefundStatusChanged:
		if m.RefundStatusChanged == nil {
			return 0, fmt.Errorf("missing %s payload", m.Type)
		}
		return m.RefundStatusChanged.UserID, nil
	case MessageTypeNewRefundRequest:
		if m.NewRefundRequest == nil {
			return 0, fmt.Errorf("missing %s payload", m.Type)
		}
		return m.NewRefundRequest.EventOwnerID, nil
	default:
		return 0, fmt.Errorf("unknown websocket message type: %q", m.Type)
	}
}

func (m WebSocketMessage) MarshalJSON() ([]byte, error) {
	var payload any
	switch m.Type {
	case MessageTypeRefundStatusChanged:
		payload = m.RefundStatusChanged
	case MessageTypeNewRefundRequest:
		payload = m.NewRefundRequest
	default:
		return nil, fmt.Errorf("unknown websocket message type: %q", m.Type)
	}
	if payload == nil {
		return nil, fmt.Errorf("missing %s payload", m.Type)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = json.RawMessage(`"` + m.Type + `"`)

	return json.Marshal(fields)
}

func (m *WebSocketMessage) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.Type {
	case MessageTypeRefundStatusChanged:
		var payload RefundStatusChanged
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		*m = WebSocketMessage{Type: tag.Type, RefundStatusChanged: &payload}
	case MessageTypeNewRefundRequest:
		var payload NewRefundRequest
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		*m = WebSocketMessage{Type: tag.Type, NewRefundRequest: &payload}
	default:
		return fmt.Errorf("unknown websocket message type: %q", tag.Type)
	}

	return nil
}
