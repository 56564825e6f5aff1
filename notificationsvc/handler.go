package notificationsvc

import (
	"context"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"ticketing/auth"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type WSHandler struct {
	verifier *auth.Verifier
	registry *Registry
}

func NewWSHandler(verifier *auth.Verifier, registry *Registry) *WSHandler {
	return &WSHandler{
		verifier: verifier,
		registry: registry,
	}
}

// Handle upgrades the connection after verifying the token from the query
// string. One goroutine drains the outbound channel into the socket, the
// handler goroutine reads incoming frames; whichever stops first takes the
// other down with it, and the registry entry is always removed on exit.
func (h *WSHandler) Handle(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	connID, outbound := h.registry.Add(claims.UserID)

	logger := log.FromContext(c.Request().Context()).WithFields(logrus.Fields{
		"user_id":       claims.UserID,
		"connection_id": connID,
	})
	logger.Info("websocket connected")

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// closing the socket is what unblocks the read loop below
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType == websocket.TextMessage && string(payload) == "ping" {
			// keepalive, nothing to answer
			continue
		}
	}

	cancel()
	h.registry.Remove(claims.UserID, connID)
	logger.Info("websocket disconnected")

	return nil
}
