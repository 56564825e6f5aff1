package clients

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"ticketing/db"
	"ticketing/entity"
)

func TestMain(m *testing.M) {
	container, url := db.StartPostgresContainer()
	os.Setenv("POSTGRES_URL", url)

	code := m.Run()

	_ = container.Terminate(context.Background())
	os.Exit(code)
}

func seedClient(t *testing.T) entity.Client {
	t.Helper()

	userID := rand.Intn(1_000_000)
	var id int
	err := db.GetDb(t).QueryRow(`
		INSERT INTO clients (user_id, email, first_name, last_name)
		VALUES ($1, $2, 'Ada', 'Lovelace')
		RETURNING id
	`, userID, fmt.Sprintf("client-%d@example.com", userID)).Scan(&id)
	require.NoError(t, err)

	client, err := NewPostgresRepository(db.GetDb(t)).GetClient(context.Background(), id)
	require.NoError(t, err)
	return client
}

func seedClientTicket(t *testing.T, clientID int) string {
	t.Helper()

	code := uuid.NewString()
	_, err := db.GetDb(t).Exec(`
		INSERT INTO client_tickets (client_id, ticket_cod, event_name, location)
		VALUES ($1, $2, 'Concert', 'Main Hall')
	`, clientID, code)
	require.NoError(t, err)
	return code
}

func TestPostgresRepository_GetClient(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	client := seedClient(t)
	code := seedClientTicket(t, client.ID)

	got, err := repo.GetClient(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, client.UserID, got.UserID)
	require.Len(t, got.Tickets, 1)
	require.Equal(t, code, got.Tickets[0].TicketCode)
	require.Nil(t, got.Tickets[0].RefundStatus)

	_, err = repo.GetClient(ctx, -1)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPostgresRepository_FindByTicketCode(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	client := seedClient(t)
	code := seedClientTicket(t, client.ID)

	got, err := repo.FindByTicketCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, client.ID, got.ID)

	_, err = repo.FindByTicketCode(ctx, "no-such-ticket")
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPostgresRepository_UpdateTicketRefundStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	client := seedClient(t)
	code := seedClientTicket(t, client.ID)

	err := repo.UpdateTicketRefundStatus(ctx, client.ID, code, entity.RefundStatusPending)
	require.NoError(t, err)

	got, err := repo.GetClient(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Tickets[0].RefundStatus)
	require.Equal(t, "PENDING", *got.Tickets[0].RefundStatus)
}

func TestPostgresRepository_RemoveTicket_idempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	client := seedClient(t)
	code := seedClientTicket(t, client.ID)

	for i := 0; i < 2; i++ {
		err := repo.RemoveTicket(ctx, client.ID, code)
		require.NoError(t, err)
	}

	got, err := repo.GetClient(ctx, client.ID)
	require.NoError(t, err)
	require.Empty(t, got.Tickets)
}
