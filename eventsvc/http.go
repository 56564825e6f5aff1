package eventsvc

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

type RefundsRepository interface {
	Get(ctx context.Context, id int) (entity.RefundRequest, error)
	ListPendingForOwner(ctx context.Context, ownerID int) ([]entity.RefundRequest, error)
	ListByRequesterEmail(ctx context.Context, email string) ([]entity.RefundRequest, error)
	Approve(ctx context.Context, id int, ownerID int) (entity.RefundRequest, error)
	Reject(ctx context.Context, id int, ownerID int, message string) (entity.RefundRequest, error)
	EventNameFor(ctx context.Context, refund entity.RefundRequest) (string, error)
}

type TicketsRepository interface {
	GetTicketDetails(ctx context.Context, code string) (entity.TicketDetails, error)
	DeleteTicket(ctx context.Context, code string) error
}

type Server struct {
	addr        string
	e           *echo.Echo
	refundsRepo RefundsRepository
	ticketsRepo TicketsRepository
	publisher   message.Publisher
}

func NewServer(
	addr string,
	verifier *auth.Verifier,
	refundsRepo RefundsRepository,
	ticketsRepo TicketsRepository,
	publisher message.Publisher,
) *Server {
	e := echoHTTP.NewEcho()

	server := &Server{
		addr:        addr,
		e:           e,
		refundsRepo: refundsRepo,
		ticketsRepo: ticketsRepo,
		publisher:   publisher,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	refundsGroup := e.Group("/refunds", verifier.Middleware())
	refundsGroup.GET("", server.GetRefunds, auth.RequireRole(auth.RoleEventOwner))
	refundsGroup.GET("/history", server.GetRefundHistory)
	refundsGroup.GET("/:id", server.GetRefund, auth.RequireRole(auth.RoleEventOwner))
	refundsGroup.POST("/:id/approve", server.ApproveRefund, auth.RequireRole(auth.RoleEventOwner))
	refundsGroup.POST("/:id/reject", server.RejectRefund, auth.RequireRole(auth.RoleEventOwner))

	// service-to-service only; client-service calls it with its admin token
	e.GET("/tickets/:cod", server.GetTicketDetails, verifier.Middleware(), auth.RequireRole(auth.RoleAdmin))

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

func (s *Server) GetRefunds(c echo.Context) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing claims")
	}

	pending, err := s.refundsRepo.ListPendingForOwner(c.Request().Context(), claims.UserID)
	if err != nil {
		return fmt.Errorf("could not list pending refunds: %w", err)
	}

	return c.JSON(http.StatusOK, pending)
}

func (s *Server) GetRefundHistory(c echo.Context) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing claims")
	}

	email := c.QueryParam("email")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if !claims.IsAdmin() && claims.Email != email {
		return echo.NewHTTPError(http.StatusForbidden, "not your history")
	}

	history, err := s.refundsRepo.ListByRequesterEmail(c.Request().Context(), email)
	if err != nil {
		return fmt.Errorf("could not list refund history: %w", err)
	}

	return c.JSON(http.StatusOK, history)
}

func (s *Server) GetRefund(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid refund id")
	}

	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing claims")
	}

	refund, err := s.refundsRepo.Get(c.Request().Context(), id)
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "refund request not found")
	}
	if err != nil {
		return fmt.Errorf("could not get refund request: %w", err)
	}

	// a foreign request looks exactly like a missing one
	if !claims.IsAdmin() && refund.EventOwnerID != claims.UserID {
		return echo.NewHTTPError(http.StatusNotFound, "refund request not found")
	}

	return c.JSON(http.StatusOK, refund)
}

func (s *Server) ApproveRefund(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid refund id")
	}

	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing claims")
	}

	ctx := c.Request().Context()

	refund, err := s.refundsRepo.Approve(ctx, id, claims.UserID)
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "refund request not found")
	}
	if err != nil {
		return fmt.Errorf("could not approve refund request: %w", err)
	}

	// compensating action: the approval stands even when the seat cannot be
	// restored
	if err := s.ticketsRepo.DeleteTicket(ctx, refund.TicketCode); err != nil {
		log.FromContext(ctx).WithError(err).
			WithField("ticket_cod", refund.TicketCode).
			Error("could not delete refunded ticket")
	}

	approvedMessage := "Your refund has been approved"
	s.publishResolution(ctx, refund, nil, approvedMessage)

	return c.JSON(http.StatusOK, refund)
}

type rejectRefundRequest struct {
	Message string `json:"message"`
}

func (s *Server) RejectRefund(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid refund id")
	}

	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing claims")
	}

	var request rejectRefundRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if l := utf8.RuneCountInString(request.Message); l < 1 || l > 1000 {
		return echo.NewHTTPError(http.StatusBadRequest, "message must be between 1 and 1000 characters")
	}

	ctx := c.Request().Context()

	refund, err := s.refundsRepo.Reject(ctx, id, claims.UserID, request.Message)
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "refund request not found")
	}
	if err != nil {
		return fmt.Errorf("could not reject refund request: %w", err)
	}

	s.publishResolution(ctx, refund, refund.RejectionMessage, request.Message)

	return c.JSON(http.StatusOK, refund)
}

// publishResolution emits the RefundResolved message and the status-changed
// broadcast. Both are best-effort: the state transition is already committed
// and is not rolled back on publish failure.
func (s *Server) publishResolution(ctx context.Context, refund entity.RefundRequest, resolvedMessage *string, notification string) {
	var eventName *string
	if name, err := s.refundsRepo.EventNameFor(ctx, refund); err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not resolve event name for resolution")
	} else {
		eventName = &name
	}

	resolved, err := pubsub.NewJSONMessage(entity.RefundResolved{
		RequestID:      refund.ID,
		TicketCode:     refund.TicketCode,
		RequesterEmail: refund.RequesterEmail,
		Status:         refund.Status,
		EventName:      eventName,
		Message:        resolvedMessage,
	})
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("could not marshal refund resolution")
		return
	}
	resolved.SetContext(ctx)

	if err := s.publisher.Publish(pubsub.TopicRefundResolved, resolved); err != nil {
		log.FromContext(ctx).WithError(err).Error("could not publish refund resolution")
	}

	broadcast, err := pubsub.NewJSONMessage(entity.NewRefundStatusChangedMessage(entity.RefundStatusChanged{
		RequestID:  refund.ID,
		TicketCode: refund.TicketCode,
		Status:     string(refund.Status),
		EventName:  eventName,
		Message:    &notification,
		UserID:     refund.RequesterID,
	}))
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("could not marshal websocket broadcast")
		return
	}
	broadcast.SetContext(ctx)

	if err := s.publisher.Publish(pubsub.TopicWSBroadcast, broadcast); err != nil {
		log.FromContext(ctx).WithError(err).Error("could not publish websocket broadcast")
	}
}

func (s *Server) GetTicketDetails(c echo.Context) error {
	code := c.Param("cod")

	details, err := s.ticketsRepo.GetTicketDetails(c.Request().Context(), code)
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}
	if err != nil {
		return fmt.Errorf("could not get ticket details: %w", err)
	}

	return c.JSON(http.StatusOK, details)
}
