package notificationsvc

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRegistry_broadcastReachesAllUserConnections(t *testing.T) {
	defer goleak.VerifyNone(t)

	registry := NewRegistry()

	firstID, firstCh := registry.Add(1)
	secondID, secondCh := registry.Add(1)
	otherID, otherCh := registry.Add(2)

	delivered := registry.BroadcastToUser(context.Background(), 1, []byte("hello"))
	assert.Equal(t, 2, delivered)

	assert.Equal(t, "hello", string(<-firstCh))
	assert.Equal(t, "hello", string(<-secondCh))
	assert.Empty(t, otherCh)

	registry.Remove(1, firstID)
	registry.Remove(1, secondID)
	registry.Remove(2, otherID)
}

func TestRegistry_broadcastToOfflineUserIsNoop(t *testing.T) {
	registry := NewRegistry()

	assert.Equal(t, 0, registry.BroadcastToUser(context.Background(), 99, []byte("nobody home")))
}

func TestRegistry_fullConnectionIsSkipped(t *testing.T) {
	registry := NewRegistry()

	connID, ch := registry.Add(1)
	defer registry.Remove(1, connID)

	for i := 0; i < outboundBuffer; i++ {
		require.Equal(t, 1, registry.BroadcastToUser(context.Background(), 1, []byte("fill")))
	}

	// nobody drains the channel, the send must not block
	assert.Equal(t, 0, registry.BroadcastToUser(context.Background(), 1, []byte("overflow")))
	assert.Len(t, ch, outboundBuffer)
}

func TestRegistry_removePrunesEmptyUsers(t *testing.T) {
	registry := NewRegistry()

	connID, _ := registry.Add(1)
	assert.Equal(t, 1, registry.ConnectedUsers())

	registry.Remove(1, connID)
	assert.Equal(t, 0, registry.ConnectedUsers())

	// removing again must be harmless
	registry.Remove(1, connID)
}

func TestRegistry_concurrentAccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	registry := NewRegistry()

	var wg sync.WaitGroup
	for user := 0; user < 10; user++ {
		user := user
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				connID, _ := registry.Add(user)
				registry.BroadcastToUser(context.Background(), user, []byte("x"))
				registry.Remove(user, connID)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, registry.ConnectedUsers())
}
