package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	owner_id INT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	seats INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS packets (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	owner_id INT NOT NULL,
	seats INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS packet_events (
	packet_id INT NOT NULL REFERENCES packets (id),
	event_id INT NOT NULL REFERENCES events (id),
	PRIMARY KEY (packet_id, event_id)
);

CREATE TABLE IF NOT EXISTS tickets (
	cod TEXT PRIMARY KEY,
	event_id INT REFERENCES events (id),
	packet_id INT REFERENCES packets (id)
);

CREATE TABLE IF NOT EXISTS clients (
	id SERIAL PRIMARY KEY,
	user_id INT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS client_tickets (
	client_id INT NOT NULL REFERENCES clients (id),
	ticket_cod TEXT NOT NULL,
	event_name TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	refund_status TEXT,
	PRIMARY KEY (client_id, ticket_cod)
);

CREATE TABLE IF NOT EXISTS refund_requests (
	id SERIAL PRIMARY KEY,
	ticket_cod TEXT NOT NULL,
	requester_id INT NOT NULL,
	requester_email TEXT NOT NULL,
	event_id INT,
	packet_id INT,
	event_owner_id INT NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	reason TEXT NOT NULL,
	rejection_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	resolved_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS refund_requests_owner_idx ON refund_requests (event_owner_id, status);
CREATE INDEX IF NOT EXISTS refund_requests_email_idx ON refund_requests (requester_email);
`

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}
	return nil
}
