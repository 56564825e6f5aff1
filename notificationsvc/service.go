package notificationsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ticketing/auth"
	"ticketing/pubsub"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	watermillRouter *message.Router
	httpServer      *Server
}

func New(addr string, amqpURL string, verifier *auth.Verifier) Service {
	registry := NewRegistry()

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var watermillRouter *message.Router

	subscriber, err := pubsub.NewSubscriber(amqpURL, pubsub.QueueWSBroadcast, watermillLogger)
	if err != nil {
		log.FromContext(context.Background()).WithError(err).
			Warn("message bus unavailable, starting in degraded mode")
	} else {
		watermillRouter, err = pubsub.NewRouter(watermillLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create watermill router: %w", err))
		}

		NewBroker(registry).AddHandlers(watermillRouter, subscriber)
	}

	return Service{
		watermillRouter: watermillRouter,
		httpServer:      NewServer(addr, verifier, registry),
	}
}

func (s Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.watermillRouter != nil {
		g.Go(func() error {
			return s.watermillRouter.Run(ctx)
		})

		g.Go(func() error {
			<-s.watermillRouter.Running()
			return s.httpServer.Run(ctx)
		})
	} else {
		g.Go(func() error {
			return s.httpServer.Run(ctx)
		})
	}

	return g.Wait()
}

type Server struct {
	addr string
	e    *echo.Echo
}

func NewServer(addr string, verifier *auth.Verifier, registry *Registry) *Server {
	e := echoHTTP.NewEcho()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":          "ok",
			"connected_users": registry.ConnectedUsers(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/ws", NewWSHandler(verifier, registry).Handle)

	return &Server{addr: addr, e: e}
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
