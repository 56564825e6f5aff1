package clientsvc

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ticketing/auth"
	"ticketing/db"
	"ticketing/db/clients"
	"ticketing/pubsub"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *Server
}

func New(
	addr string,
	database *sqlx.DB,
	amqpURL string,
	verifier *auth.Verifier,
	inventory InventoryService,
) Service {
	clientsRepo := clients.NewPostgresRepository(database)

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var watermillRouter *message.Router
	var publisher message.Publisher
	var subscriber message.Subscriber

	publisher, err := pubsub.NewPublisher(amqpURL, watermillLogger)
	if err == nil {
		subscriber, err = pubsub.NewSubscriber(amqpURL, pubsub.QueueRefundResolvedClient, watermillLogger)
	}
	if err != nil {
		log.FromContext(context.Background()).WithError(err).
			Warn("message bus unavailable, starting in degraded mode")
		publisher = pubsub.UnavailablePublisher{}
	} else {
		watermillRouter, err = pubsub.NewRouter(watermillLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create watermill router: %w", err))
		}

		NewConsumer(clientsRepo).AddHandlers(watermillRouter, subscriber)
	}

	httpServer := NewServer(addr, verifier, clientsRepo, inventory, publisher)

	return Service{
		db:              database,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if s.watermillRouter != nil {
		g.Go(func() error {
			return s.watermillRouter.Run(ctx)
		})

		g.Go(func() error {
			// HTTP starts after the router so the service is not reported
			// healthy before consumers are attached
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
