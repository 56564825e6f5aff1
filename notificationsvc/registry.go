package notificationsvc

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ticketing/metrics"
)

const outboundBuffer = 16

type connection struct {
	id  uuid.UUID
	out chan []byte
}

// Registry tracks live websocket connections per user. A user may hold any
// number of simultaneous connections; broadcasts go to all of them.
// Connections are process-local and never persisted.
type Registry struct {
	mu    sync.RWMutex
	users map[int][]connection
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[int][]connection),
	}
}

// Add registers a new connection for the user and returns its id together
// with the outbound channel the socket writer drains.
func (r *Registry) Add(userID int) (uuid.UUID, <-chan []byte) {
	conn := connection{
		id:  uuid.New(),
		out: make(chan []byte, outboundBuffer),
	}

	r.mu.Lock()
	r.users[userID] = append(r.users[userID], conn)
	r.mu.Unlock()

	metrics.WebSocketConnections.Inc()

	return conn.id, conn.out
}

// Remove drops the connection and prunes the user entry when it was the last
// one. Removing an unknown connection is a no-op.
func (r *Registry) Remove(userID int, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.users[userID]
	for i, conn := range conns {
		if conn.id == connID {
			conns = append(conns[:i], conns[i+1:]...)
			metrics.WebSocketConnections.Dec()
			break
		}
	}

	if len(conns) == 0 {
		delete(r.users, userID)
	} else {
		r.users[userID] = conns
	}
}

// BroadcastToUser delivers the payload to every live connection of the user
// and reports how many accepted it. A connection with a full buffer is
// skipped and logged; an offline user receives nothing.
func (r *Registry) BroadcastToUser(ctx context.Context, userID int, payload []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, conn := range r.users[userID] {
		select {
		case conn.out <- payload:
			delivered++
		default:
			log.FromContext(ctx).WithFields(logrus.Fields{
				"user_id":       userID,
				"connection_id": conn.id,
			}).Warn("skipping broadcast to connection with a full buffer")
		}
	}

	return delivered
}

func (r *Registry) ConnectedUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}
