package clientsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ticketing/auth"
	"ticketing/entity"
	"ticketing/pubsub"
)

type ClientsRepository interface {
	GetClient(ctx context.Context, id int) (entity.Client, error)
	ListTickets(ctx context.Context, clientID int) ([]entity.ClientTicket, error)
	UpdateTicketRefundStatus(ctx context.Context, clientID int, code string, status entity.RefundStatus) error
}

type InventoryService interface {
	GetTicketDetails(ctx context.Context, code string) (entity.TicketDetails, error)
}

type Server struct {
	addr        string
	e           *echo.Echo
	clientsRepo ClientsRepository
	inventory   InventoryService
	publisher   message.Publisher
}

func NewServer(
	addr string,
	verifier *auth.Verifier,
	clientsRepo ClientsRepository,
	inventory InventoryService,
	publisher message.Publisher,
) *Server {
	e := echoHTTP.NewEcho()

	server := &Server{
		addr:        addr,
		e:           e,
		clientsRepo: clientsRepo,
		inventory:   inventory,
		publisher:   publisher,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	clientsGroup := e.Group("/clients", verifier.Middleware())
	clientsGroup.GET("/:id", server.GetClient)
	clientsGroup.GET("/:id/tickets", server.GetClientTickets)
	clientsGroup.POST("/:id/refunds", server.PostRefund)

	return server
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

func (s *Server) loadAuthorizedClient(c echo.Context) (entity.Client, error) {
	clientID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return entity.Client{}, echo.NewHTTPError(http.StatusBadRequest, "invalid client id")
	}

	client, err := s.clientsRepo.GetClient(c.Request().Context(), clientID)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.Client{}, echo.NewHTTPError(http.StatusNotFound, "client not found")
	}
	if err != nil {
		return entity.Client{}, fmt.Errorf("could not get client: %w", err)
	}

	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return entity.Client{}, echo.NewHTTPError(http.StatusUnauthorized, "missing claims")
	}
	if !claims.IsAdmin() && claims.UserID != client.UserID {
		return entity.Client{}, echo.NewHTTPError(http.StatusForbidden, "not your profile")
	}

	return client, nil
}

func (s *Server) GetClient(c echo.Context) error {
	client, err := s.loadAuthorizedClient(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, client)
}

func (s *Server) GetClientTickets(c echo.Context) error {
	client, err := s.loadAuthorizedClient(c)
	if err != nil {
		return err
	}

	tickets, err := s.clientsRepo.ListTickets(c.Request().Context(), client.ID)
	if err != nil {
		return fmt.Errorf("could not list tickets: %w", err)
	}

	return c.JSON(http.StatusOK, tickets)
}

type postRefundRequest struct {
	TicketCode string `json:"ticket_cod"`
	Reason     string `json:"reason"`
}

type postRefundResponse struct {
	Status string `json:"status"`
}

func (s *Server) PostRefund(c echo.Context) error {
	client, err := s.loadAuthorizedClient(c)
	if err != nil {
		return err
	}

	var request postRefundRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.TicketCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket_cod is required")
	}
	if l := utf8.RuneCountInString(request.Reason); l < 1 || l > 1000 {
		return echo.NewHTTPError(http.StatusBadRequest, "reason must be between 1 and 1000 characters")
	}

	ticket, ok := client.FindTicket(request.TicketCode)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}

	if ticket.RefundStatus != nil {
		switch entity.RefundStatus(*ticket.RefundStatus) {
		case entity.RefundStatusPending:
			return echo.NewHTTPError(http.StatusConflict, "a refund request for this ticket is already pending")
		case entity.RefundStatusApproved:
			return echo.NewHTTPError(http.StatusConflict, "this ticket has already been refunded")
		case entity.RefundStatusRejected:
			return echo.NewHTTPError(http.StatusConflict, "a refund request for this ticket has already been rejected, another request cannot be made")
		}
	}

	ctx := c.Request().Context()

	details, err := s.inventory.GetTicketDetails(ctx, request.TicketCode)
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}
	if err != nil {
		return fmt.Errorf("could not resolve ticket details: %w", err)
	}

	ownerID, ok := details.OwnerID()
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket is not associated with an event or packet")
	}

	msg, err := pubsub.NewJSONMessage(entity.RefundRequested{
		TicketCode:     request.TicketCode,
		RequesterID:    client.UserID,
		RequesterEmail: client.Email,
		EventID:        details.Ticket.EventID,
		PacketID:       details.Ticket.PacketID,
		EventOwnerID:   ownerID,
		Reason:         request.Reason,
	})
	if err != nil {
		return fmt.Errorf("could not marshal refund request: %w", err)
	}
	msg.SetContext(ctx)

	if err := s.publisher.Publish(pubsub.TopicRefundRequested, msg); err != nil {
		if errors.Is(err, pubsub.ErrBusUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "refunds are temporarily unavailable")
		}
		return fmt.Errorf("could not publish refund request: %w", err)
	}

	// the response is already committed to accepted, the cache update is
	// best-effort
	err = s.clientsRepo.UpdateTicketRefundStatus(ctx, client.ID, request.TicketCode, entity.RefundStatusPending)
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("could not cache pending refund status")
	}

	return c.JSON(http.StatusAccepted, postRefundResponse{Status: "accepted"})
}
