package clients

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

// GetClient loads the client profile with its ticket references.
func (r *PostgresRepository) GetClient(ctx context.Context, id int) (entity.Client, error) {
	var client entity.Client
	err := r.db.GetContext(ctx, &client, `
		SELECT id, user_id, email, first_name, last_name FROM clients WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Client{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Client{}, fmt.Errorf("could not get client %d: %w", id, err)
	}

	client.Tickets, err = r.ListTickets(ctx, id)
	if err != nil {
		return entity.Client{}, err
	}

	return client, nil
}

func (r *PostgresRepository) ListTickets(ctx context.Context, clientID int) ([]entity.ClientTicket, error) {
	var tickets []entity.ClientTicket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT ticket_cod, event_name, location, refund_status
		FROM client_tickets
		WHERE client_id = $1
		ORDER BY ticket_cod
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("could not list tickets of client %d: %w", clientID, err)
	}

	return tickets, nil
}

// FindByTicketCode returns the client holding a reference to the given
// ticket code.
func (r *PostgresRepository) FindByTicketCode(ctx context.Context, code string) (entity.Client, error) {
	var client entity.Client
	err := r.db.GetContext(ctx, &client, `
		SELECT c.id, c.user_id, c.email, c.first_name, c.last_name
		FROM clients c
		JOIN client_tickets ct ON ct.client_id = c.id
		WHERE ct.ticket_cod = $1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Client{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Client{}, fmt.Errorf("could not find client for ticket %s: %w", code, err)
	}

	return client, nil
}

// RemoveTicket drops the client's reference to a refunded ticket. Removing a
// reference that is already gone is not an error, so redeliveries converge.
func (r *PostgresRepository) RemoveTicket(ctx context.Context, clientID int, code string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM client_tickets WHERE client_id = $1 AND ticket_cod = $2
	`, clientID, code)
	if err != nil {
		return fmt.Errorf("could not remove ticket %s from client %d: %w", code, clientID, err)
	}

	return nil
}

// UpdateTicketRefundStatus sets the cached refund status on the client's
// ticket reference.
func (r *PostgresRepository) UpdateTicketRefundStatus(ctx context.Context, clientID int, code string, status entity.RefundStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE client_tickets SET refund_status = $3
		WHERE client_id = $1 AND ticket_cod = $2
	`, clientID, code, string(status))
	if err != nil {
		return fmt.Errorf("could not update refund status of ticket %s: %w", code, err)
	}

	return nil
}
