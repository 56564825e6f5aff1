package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ticketing/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return &PostgresRepository{db: db}
}

// GetTicketDetails returns the ticket together with the event or packet it
// belongs to.
func (r *PostgresRepository) GetTicketDetails(ctx context.Context, code string) (entity.TicketDetails, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `
		SELECT cod, event_id, packet_id FROM tickets WHERE cod = $1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.TicketDetails{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.TicketDetails{}, fmt.Errorf("could not get ticket %s: %w", code, err)
	}

	details := entity.TicketDetails{Ticket: ticket}

	if ticket.EventID != nil {
		var event entity.Event
		err = r.db.GetContext(ctx, &event, `
			SELECT id, name, owner_id, seats FROM events WHERE id = $1
		`, *ticket.EventID)
		if err != nil {
			return entity.TicketDetails{}, fmt.Errorf("could not get event %d: %w", *ticket.EventID, err)
		}
		details.Event = &event
	}

	if ticket.PacketID != nil {
		var packet entity.Packet
		err = r.db.GetContext(ctx, &packet, `
			SELECT id, name, owner_id, seats FROM packets WHERE id = $1
		`, *ticket.PacketID)
		if err != nil {
			return entity.TicketDetails{}, fmt.Errorf("could not get packet %d: %w", *ticket.PacketID, err)
		}
		details.Packet = &packet
	}

	return details, nil
}

// DeleteTicket removes the ticket and gives its seat back. An event ticket
// frees one seat on its event. A packet ticket frees one seat on every event
// in the packet, after which the packet's own capacity is the minimum across
// its events.
func (r *PostgresRepository) DeleteTicket(ctx context.Context, code string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ticket entity.Ticket
	err = tx.GetContext(ctx, &ticket, `
		SELECT cod, event_id, packet_id FROM tickets WHERE cod = $1 FOR UPDATE
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("could not lock ticket %s: %w", code, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM tickets WHERE cod = $1`, code)
	if err != nil {
		return fmt.Errorf("could not delete ticket %s: %w", code, err)
	}

	if ticket.EventID != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE events SET seats = seats + 1 WHERE id = $1
		`, *ticket.EventID)
		if err != nil {
			return fmt.Errorf("could not restore seat on event %d: %w", *ticket.EventID, err)
		}
	}

	if ticket.PacketID != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE events SET seats = seats + 1
			WHERE id IN (SELECT event_id FROM packet_events WHERE packet_id = $1)
		`, *ticket.PacketID)
		if err != nil {
			return fmt.Errorf("could not restore seats on packet %d events: %w", *ticket.PacketID, err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE packets SET seats = (
				SELECT MIN(e.seats)
				FROM events e
				JOIN packet_events pe ON pe.event_id = e.id
				WHERE pe.packet_id = $1
			)
			WHERE id = $1
		`, *ticket.PacketID)
		if err != nil {
			return fmt.Errorf("could not recompute packet %d seats: %w", *ticket.PacketID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit ticket deletion: %w", err)
	}

	return nil
}
