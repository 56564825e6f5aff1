package entity

// Ticket is the inventory-side ticket record. Exactly one of EventID and
// PacketID is set.
type Ticket struct {
	Code     string `json:"cod" db:"cod"`
	EventID  *int   `json:"event_id" db:"event_id"`
	PacketID *int   `json:"packet_id" db:"packet_id"`
}

type Event struct {
	ID      int    `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	OwnerID int    `json:"owner_id" db:"owner_id"`
	Seats   int    `json:"seats" db:"seats"`
}

// Packet bundles several events; its Seats is the minimum remaining capacity
// across the linked events.
type Packet struct {
	ID      int    `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	OwnerID int    `json:"owner_id" db:"owner_id"`
	Seats   int    `json:"seats" db:"seats"`
}

// TicketDetails is what the inventory service returns for a ticket lookup:
// the ticket plus whichever of event/packet it belongs to.
type TicketDetails struct {
	Ticket Ticket  `json:"ticket"`
	Event  *Event  `json:"event"`
	Packet *Packet `json:"packet"`
}

// OwnerID resolves the owner of the ticket's event or packet. The second
// return is false when the ticket is associated with neither.
func (d TicketDetails) OwnerID() (int, bool) {
	if d.Event != nil {
		return d.Event.OwnerID, true
	}
	if d.Packet != nil {
		return d.Packet.OwnerID, true
	}
	return 0, false
}
