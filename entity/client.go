package entity

// ClientTicket is a client's reference to a purchased ticket. RefundStatus is
// a cache of the refund state, updated optimistically on submission and
// authoritatively by the refund.resolved consumer; the RefundRequest row is
// the system of record.
type ClientTicket struct {
	TicketCode   string  `json:"ticket_cod" db:"ticket_cod"`
	EventName    string  `json:"event_name" db:"event_name"`
	Location     string  `json:"location" db:"location"`
	RefundStatus *string `json:"refund_status" db:"refund_status"`
}

type Client struct {
	ID        int    `json:"id" db:"id"`
	UserID    int    `json:"user_id" db:"user_id"`
	Email     string `json:"email" db:"email"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	Tickets []ClientTicket `json:"tickets" db:"-"`
}

// FindTicket returns the client's reference to the given ticket code.
func (c Client) FindTicket(code string) (ClientTicket, bool) {
	for _, t := range c.Tickets {
		if t.TicketCode == code {
			return t, true
		}
	}
	return ClientTicket{}, false
}
