package entity

import "time"

type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "PENDING"
	RefundStatusApproved RefundStatus = "APPROVED"
	RefundStatusRejected RefundStatus = "REJECTED"
)

// RefundRequest is the authoritative record of a refund. It is created by the
// refund.requested consumer and resolved exactly once by the owning event
// manager; a request never leaves APPROVED or REJECTED.
type RefundRequest struct {
	ID               int          `json:"id" db:"id"`
	TicketCode       string       `json:"ticket_cod" db:"ticket_cod"`
	RequesterID      int          `json:"requester_id" db:"requester_id"`
	RequesterEmail   string       `json:"requester_email" db:"requester_email"`
	EventID          *int         `json:"event_id" db:"event_id"`
	PacketID         *int         `json:"packet_id" db:"packet_id"`
	EventOwnerID     int          `json:"event_owner_id" db:"event_owner_id"`
	Status           RefundStatus `json:"status" db:"status"`
	Reason           string       `json:"reason" db:"reason"`
	RejectionMessage *string      `json:"rejection_message" db:"rejection_message"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	ResolvedAt       *time.Time   `json:"resolved_at" db:"resolved_at"`
}

func (r RefundRequest) Resolved() bool {
	return r.Status != RefundStatusPending
}
