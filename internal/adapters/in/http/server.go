package http

import (
	"context"
	"net/http"

	"lastmile/internal/core/application/livesync"
	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/application/usecases/queries"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"
)

type (
	TransitionHandler interface {
		Handle(ctx context.Context, cmd commands.ApplyTransitionCommand) (services.Transition, error)
	}

	PlaceOrderHandler interface {
		Handle(ctx context.Context, cmd commands.PlaceOrderCommand) (*order.Order, error)
	}

	ParticipantOrdersHandler interface {
		Handle(ctx context.Context, query queries.GetParticipantOrdersQuery) (queries.GetParticipantOrdersQueryResponse, error)
	}
)

// Server handles HTTP requests.
// It coordinates between HTTP handlers and application use cases.
type Server struct {
	// Command handlers
	transitionHandler TransitionHandler
	placeOrderHandler PlaceOrderHandler

	// Query handlers
	participantOrdersHandler ParticipantOrdersHandler

	hub    *livesync.Hub
	logger *zap.Logger
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(
	transitionHandler TransitionHandler,
	placeOrderHandler PlaceOrderHandler,
	participantOrdersHandler ParticipantOrdersHandler,
	hub *livesync.Hub,
	l *zap.Logger,
) *Server {
	return &Server{
		transitionHandler:        transitionHandler,
		placeOrderHandler:        placeOrderHandler,
		participantOrdersHandler: participantOrdersHandler,
		hub:                      hub,
		logger:                   logger.Component(l, "http_server"),
	}
}

// Health handles GET /health.
func (s *Server) Health(c echo.Context) error {
	return c.String(http.StatusOK, "Healthy")
}

// GetOrders handles GET /api/v1/orders - the session participant's orders
// of one tab, narrowed by the optional q search.
func (s *Server) GetOrders(c echo.Context) error {
	tab, err := services.ParseTab(c.QueryParam("tab"))
	if err != nil {
		return s.writeError(c, err)
	}
	text := c.QueryParam("q")

	query, err := queries.NewGetParticipantOrdersQuery(sessionFrom(c), tab, text)
	if err != nil {
		return s.writeError(c, err)
	}

	resp, err := s.participantOrdersHandler.Handle(c.Request().Context(), query)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, OrderListResponse{
		Tab:    string(resp.Tab),
		Query:  text,
		Orders: toOrderResponses(resp.Orders),
		Counts: toCounts(resp.Counts),
	})
}

// PlaceOrder handles POST /api/v1/orders - a client places a new order.
func (s *Server) PlaceOrder(c echo.Context) error {
	var req PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	location, err := kernel.NewLocation(req.Location.Latitude, req.Location.Longitude)
	if err != nil {
		return s.writeError(c, err)
	}

	attributes := order.Attributes{
		Name:       req.OrderName,
		ClientName: req.ClientName,
		Address:    req.Address,
		Icon:       req.Icon,
		Weight:     order.Weight(req.Weight),
		Sensitive:  req.Sensitive,
		Location:   location,
	}
	if req.ArrivalDate != nil {
		attributes.ArrivalDate = req.ArrivalDate.UTC()
	}

	cmd, err := commands.NewPlaceOrderCommand(
		sessionFrom(c),
		attributes,
		order.Secrets{Code: req.Code, StorageCode: req.StorageCode},
		req.Participants...,
	)
	if err != nil {
		return s.writeError(c, err)
	}

	placed, err := s.placeOrderHandler.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, toOrderResponse(queries.NewOrderSummary(placed)))
}

// ApplyTransition handles POST /api/v1/orders/:id/:operation, e.g.
// /api/v1/orders/<id>/confirm-delivery with body {"code": "123"}.
func (s *Server) ApplyTransition(c echo.Context) error {
	op, err := services.ParseOperation(c.Param("operation"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Code: http.StatusNotFound, Message: "Unknown operation"})
	}

	var id openapi_types.UUID
	err = runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: "Invalid order id"})
	}
	orderID, err := kernel.UUIDFromBytes(id[:])
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: "Invalid order id"})
	}

	var req TransitionRequest
	if op.RequiresProof() {
		if err = c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Invalid request body",
			})
		}
	}

	cmd, err := commands.NewApplyTransitionCommand(sessionFrom(c), op, orderID, req.Code)
	if err != nil {
		return s.writeError(c, err)
	}

	tr, err := s.transitionHandler.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, transitionToResponse(tr))
}
