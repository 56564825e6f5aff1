package refunds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ticketing/entity"
)

const columns = `id, ticket_cod, requester_id, requester_email, event_id, packet_id,
	event_owner_id, status, reason, rejection_message, created_at, resolved_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, refund entity.RefundRequest) (entity.RefundRequest, error) {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO refund_requests
			(ticket_cod, requester_id, requester_email, event_id, packet_id, event_owner_id, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', $7)
		RETURNING `+columns,
		refund.TicketCode,
		refund.RequesterID,
		refund.RequesterEmail,
		refund.EventID,
		refund.PacketID,
		refund.EventOwnerID,
		refund.Reason,
	).StructScan(&refund)
	if err != nil {
		return entity.RefundRequest{}, fmt.Errorf("could not create refund request: %w", err)
	}

	return refund, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int) (entity.RefundRequest, error) {
	var refund entity.RefundRequest
	err := r.db.GetContext(ctx, &refund, `
		SELECT `+columns+` FROM refund_requests WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.RefundRequest{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.RefundRequest{}, fmt.Errorf("could not get refund request %d: %w", id, err)
	}

	return refund, nil
}

func (r *PostgresRepository) ListPendingForOwner(ctx context.Context, ownerID int) ([]entity.RefundRequest, error) {
	var refunds []entity.RefundRequest
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT `+columns+` FROM refund_requests
		WHERE event_owner_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("could not list pending refund requests: %w", err)
	}

	return refunds, nil
}

func (r *PostgresRepository) ListByRequesterEmail(ctx context.Context, email string) ([]entity.RefundRequest, error) {
	var refunds []entity.RefundRequest
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT `+columns+` FROM refund_requests
		WHERE requester_email = $1
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("could not list refund requests for %s: %w", email, err)
	}

	return refunds, nil
}

// Approve transitions a PENDING request owned by ownerID to APPROVED. Any
// other case, whether the request does not exist, belongs to someone else or
// is already resolved, comes back as entity.ErrNotFound.
func (r *PostgresRepository) Approve(ctx context.Context, id int, ownerID int) (entity.RefundRequest, error) {
	var refund entity.RefundRequest
	err := r.db.QueryRowxContext(ctx, `
		UPDATE refund_requests
		SET status = 'APPROVED', resolved_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND event_owner_id = $2 AND status = 'PENDING'
		RETURNING `+columns,
		id, ownerID,
	).StructScan(&refund)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.RefundRequest{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.RefundRequest{}, fmt.Errorf("could not approve refund request %d: %w", id, err)
	}

	return refund, nil
}

// Reject follows the same conditional transition as Approve, recording the
// owner's message for the requester.
func (r *PostgresRepository) Reject(ctx context.Context, id int, ownerID int, message string) (entity.RefundRequest, error) {
	var refund entity.RefundRequest
	err := r.db.QueryRowxContext(ctx, `
		UPDATE refund_requests
		SET status = 'REJECTED', rejection_message = $3, resolved_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND event_owner_id = $2 AND status = 'PENDING'
		RETURNING `+columns,
		id, ownerID, message,
	).StructScan(&refund)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.RefundRequest{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.RefundRequest{}, fmt.Errorf("could not reject refund request %d: %w", id, err)
	}

	return refund, nil
}

// EventNameFor resolves the display name of the event or packet the refunded
// ticket belonged to.
func (r *PostgresRepository) EventNameFor(ctx context.Context, refund entity.RefundRequest) (string, error) {
	var name string
	var err error
	switch {
	case refund.EventID != nil:
		err = r.db.GetContext(ctx, &name, `SELECT name FROM events WHERE id = $1`, *refund.EventID)
	case refund.PacketID != nil:
		err = r.db.GetContext(ctx, &name, `SELECT name FROM packets WHERE id = $1`, *refund.PacketID)
	default:
		return "", entity.ErrNotFound
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", entity.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("could not resolve event name for refund %d: %w", refund.ID, err)
	}

	return name, nil
}
