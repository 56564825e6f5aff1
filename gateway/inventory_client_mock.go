package gateway

import (
	"context"
	"sync"

	"ticketing/entity"
)

type InventoryMock struct {
	lock    sync.Mutex
	tickets map[string]entity.TicketDetails
}

func (c *InventoryMock) AddTicket(details entity.TicketDetails) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.tickets == nil {
		c.tickets = make(map[string]entity.TicketDetails)
	}

	c.tickets[details.Ticket.Code] = details
}

func (c *InventoryMock) GetTicketDetails(_ context.Context, code string) (entity.TicketDetails, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	details, ok := c.tickets[code]
	if !ok {
		return entity.TicketDetails{}, entity.ErrNotFound
	}

	return details, nil
}
