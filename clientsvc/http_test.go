package clientsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/auth"
	"ticketing/entity"
	"ticketing/gateway"
	"ticketing/pubsub"
)

type clientsStoreFake struct {
	mu       sync.Mutex
	clients  map[int]entity.Client
	statuses map[string]entity.RefundStatus
}

func newClientsStoreFake() *clientsStoreFake {
	return &clientsStoreFake{
		clients:  map[int]entity.Client{},
		statuses: map[string]entity.RefundStatus{},
	}
}

func (f *clientsStoreFake) GetClient(_ context.Context, id int) (entity.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	client, ok := f.clients[id]
	if !ok {
		return entity.Client{}, entity.ErrNotFound
	}
	return client, nil
}

func (f *clientsStoreFake) ListTickets(_ context.Context, clientID int) ([]entity.ClientTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[clientID].Tickets, nil
}

func (f *clientsStoreFake) UpdateTicketRefundStatus(_ context.Context, _ int, code string, status entity.RefundStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[code] = status
	return nil
}

type publisherFake struct {
	mu        sync.Mutex
	published map[string][]*message.Message
	err       error
}

func (p *publisherFake) Publish(topic string, messages ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published == nil {
		p.published = map[string][]*message.Message{}
	}
	p.published[topic] = append(p.published[topic], messages...)
	return nil
}

func (p *publisherFake) Close() error {
	return nil
}

const testSecret = "test-secret"

type submissionFixture struct {
	server    *Server
	store     *clientsStoreFake
	inventory *gateway.InventoryMock
	publisher *publisherFake
	verifier  *auth.Verifier
}

func newSubmissionFixture(t *testing.T) submissionFixture {
	t.Helper()

	store := newClientsStoreFake()
	inventory := &gateway.InventoryMock{}
	publisher := &publisherFake{}
	verifier := auth.NewVerifier(testSecret)

	server := NewServer(":0", verifier, store, inventory, publisher)

	return submissionFixture{
		server:    server,
		store:     store,
		inventory: inventory,
		publisher: publisher,
		verifier:  verifier,
	}
}

func (f submissionFixture) token(t *testing.T, claims auth.UserClaims) string {
	t.Helper()

	token, err := f.verifier.Sign(claims)
	require.NoError(t, err)
	return token
}

func (f submissionFixture) postRefund(t *testing.T, clientID string, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/clients/"+clientID+"/refunds", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.server.e.ServeHTTP(rec, req)
	return rec
}

func TestPostRefund_acceptsAndPublishes(t *testing.T) {
	f := newSubmissionFixture(t)

	f.store.clients[1] = entity.Client{
		ID:     1,
		UserID: 42,
		Email:  "client@example.com",
		Tickets: []entity.ClientTicket{
			{TicketCode: "ABC123", EventName: "Jazz Night"},
		},
	}
	eventID := 5
	f.inventory.AddTicket(entity.TicketDetails{
		Ticket: entity.Ticket{Code: "ABC123", EventID: &eventID},
		Event:  &entity.Event{ID: eventID, Name: "Jazz Night", OwnerID: 9, Seats: 10},
	})

	token := f.token(t, auth.UserClaims{UserID: 42, Email: "client@example.com", Roles: []string{auth.RoleClient}})

	rec := f.postRefund(t, "1", token, `{"ticket_cod":"ABC123","reason":"wrong date"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	published := f.publisher.published[pubsub.TopicRefundRequested]
	require.Len(t, published, 1)

	var requested entity.RefundRequested
	require.NoError(t, json.Unmarshal(published[0].Payload, &requested))
	assert.Equal(t, 0, requested.RequestID)
	assert.Equal(t, "ABC123", requested.TicketCode)
	assert.Equal(t, 42, requested.RequesterID)
	assert.Equal(t, "client@example.com", requested.RequesterEmail)
	assert.Equal(t, 9, requested.EventOwnerID)
	assert.Equal(t, "wrong date", requested.Reason)

	// the cached status is set after the publish
	assert.Equal(t, entity.RefundStatusPending, f.store.statuses["ABC123"])
}

func TestPostRefund_conflictsOnCachedStatus(t *testing.T) {
	for status, wantMessage := range map[string]string{
		"PENDING":  "already pending",
		"APPROVED": "already been refunded",
		"REJECTED": "already been rejected",
	} {
		status, wantMessage := status, wantMessage
		t.Run(status, func(t *testing.T) {
			f := newSubmissionFixture(t)

			f.store.clients[1] = entity.Client{
				ID:     1,
				UserID: 42,
				Tickets: []entity.ClientTicket{
					{TicketCode: "ABC123", RefundStatus: &status},
				},
			}

			token := f.token(t, auth.UserClaims{UserID: 42, Roles: []string{auth.RoleClient}})

			rec := f.postRefund(t, "1", token, `{"ticket_cod":"ABC123","reason":"wrong date"}`)
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Contains(t, rec.Body.String(), wantMessage)
			assert.Empty(t, f.publisher.published)
		})
	}
}

func TestPostRefund_validation(t *testing.T) {
	f := newSubmissionFixture(t)

	f.store.clients[1] = entity.Client{
		ID:      1,
		UserID:  42,
		Tickets: []entity.ClientTicket{{TicketCode: "ABC123"}},
	}

	token := f.token(t, auth.UserClaims{UserID: 42, Roles: []string{auth.RoleClient}})

	rec := f.postRefund(t, "1", token, `{"reason":"wrong date"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.postRefund(t, "1", token, `{"ticket_cod":"ABC123","reason":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	longReason := strings.Repeat("x", 1001)
	rec = f.postRefund(t, "1", token, `{"ticket_cod":"ABC123","reason":"`+longReason+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.postRefund(t, "1", token, `{"ticket_cod":"UNKNOWN","reason":"wrong date"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, f.publisher.published)
}

func TestPostRefund_authorization(t *testing.T) {
	f := newSubmissionFixture(t)

	f.store.clients[1] = entity.Client{
		ID:      1,
		UserID:  42,
		Tickets: []entity.ClientTicket{{TicketCode: "ABC123"}},
	}

	rec := f.postRefund(t, "1", f.token(t, auth.UserClaims{UserID: 7, Roles: []string{auth.RoleClient}}), `{"ticket_cod":"ABC123","reason":"r"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/clients/1/refunds", strings.NewReader(`{}`))
	recorder := httptest.NewRecorder()
	f.server.e.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestPostRefund_ticketWithoutEventOrPacketIsMalformed(t *testing.T) {
	f := newSubmissionFixture(t)

	f.store.clients[1] = entity.Client{
		ID:      1,
		UserID:  42,
		Tickets: []entity.ClientTicket{{TicketCode: "ORPHAN"}},
	}
	f.inventory.AddTicket(entity.TicketDetails{
		Ticket: entity.Ticket{Code: "ORPHAN"},
	})

	token := f.token(t, auth.UserClaims{UserID: 42, Roles: []string{auth.RoleClient}})

	rec := f.postRefund(t, "1", token, `{"ticket_cod":"ORPHAN","reason":"wrong date"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.publisher.published)
}

func TestPostRefund_busUnavailable(t *testing.T) {
	f := newSubmissionFixture(t)
	f.publisher.err = pubsub.ErrBusUnavailable

	f.store.clients[1] = entity.Client{
		ID:      1,
		UserID:  42,
		Tickets: []entity.ClientTicket{{TicketCode: "ABC123"}},
	}
	eventID := 5
	f.inventory.AddTicket(entity.TicketDetails{
		Ticket: entity.Ticket{Code: "ABC123", EventID: &eventID},
		Event:  &entity.Event{ID: eventID, OwnerID: 9},
	})

	token := f.token(t, auth.UserClaims{UserID: 42, Roles: []string{auth.RoleClient}})

	rec := f.postRefund(t, "1", token, `{"ticket_cod":"ABC123","reason":"wrong date"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// the optimistic cache must not claim a request that never went out
	assert.Empty(t, f.store.statuses)
}

func TestGetClientTickets(t *testing.T) {
	f := newSubmissionFixture(t)

	f.store.clients[1] = entity.Client{
		ID:      1,
		UserID:  42,
		Tickets: []entity.ClientTicket{{TicketCode: "ABC123", EventName: "Jazz Night"}},
	}

	token := f.token(t, auth.UserClaims{UserID: 42, Roles: []string{auth.RoleClient}})

	req := httptest.NewRequest(http.MethodGet, "/clients/1/tickets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.server.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var tickets []entity.ClientTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, "ABC123", tickets[0].TicketCode)
}
