package http

import (
	"time"

	"lastmile/internal/core/application/livesync"
	"lastmile/internal/core/application/usecases/queries"
	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/services"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type LocationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type OrderResponse struct {
	ID                 string      `json:"id"`
	OrderName          string      `json:"order_name"`
	ClientID           []string    `json:"client_id"`
	Status             string      `json:"status"`
	Accepted           bool        `json:"accepted"`
	Stored             bool        `json:"stored"`
	DeliveryAction     string      `json:"delivery_action"`
	NotificationAction string      `json:"notification_action,omitempty"`
	Weight             string      `json:"weight"`
	Sensitive          bool        `json:"sensitive"`
	Address            string      `json:"address"`
	ClientName         string      `json:"client_name"`
	Icon               string      `json:"icon"`
	Location           LocationDTO `json:"location"`
	CreationDate       time.Time   `json:"creation_date"`
	ArrivalDate        *time.Time  `json:"arrival_date,omitempty"`
	Version            int64       `json:"version"`
}

type OrderListResponse struct {
	Tab    string          `json:"tab"`
	Query  string          `json:"query,omitempty"`
	Orders []OrderResponse `json:"orders"`
	Counts map[string]int  `json:"counts"`
}

type DeliveryActionResponse struct {
	Key                string    `json:"key"`
	Action             string    `json:"action"`
	Timestamp          time.Time `json:"timestamp"`
	NotificationAction string    `json:"notification_action,omitempty"`
}

type TransitionResponse struct {
	Operation string                 `json:"operation"`
	Order     OrderResponse          `json:"order"`
	Action    DeliveryActionResponse `json:"action"`
}

type PlaceOrderRequest struct {
	OrderName   string      `json:"order_name"`
	ClientName  string      `json:"client_name"`
	Address     string      `json:"address"`
	Icon        string      `json:"icon"`
	Weight      string      `json:"weight"`
	Sensitive   bool        `json:"sensitive"`
	Location    LocationDTO `json:"location"`
	ArrivalDate *time.Time  `json:"arrival_date"`
	Code        string      `json:"code"`
	StorageCode string      `json:"storage_code"`
	// Participants assigned up front, e.g. a carrier or a host.
	Participants []string `json:"participants"`
}

type TransitionRequest struct {
	Code string `json:"code"`
}

func toOrderResponse(s queries.OrderSummary) OrderResponse {
	resp := OrderResponse{
		ID:                 s.ID.String(),
		OrderName:          s.Name,
		ClientID:           s.Participants,
		Status:             s.Status,
		Accepted:           s.Accepted,
		Stored:             s.Stored,
		DeliveryAction:     s.CurrentAction,
		NotificationAction: s.NotificationAction,
		Weight:             s.Weight,
		Sensitive:          s.Sensitive,
		Address:            s.Address,
		ClientName:         s.ClientName,
		Icon:               s.Icon,
		Location: LocationDTO{
			Latitude:  s.Location.Latitude(),
			Longitude: s.Location.Longitude(),
		},
		CreationDate: s.CreatedAt,
		Version:      s.Version,
	}
	if !s.ArrivalDate.IsZero() {
		arrival := s.ArrivalDate
		resp.ArrivalDate = &arrival
	}
	return resp
}

func toOrderResponses(summaries []queries.OrderSummary) []OrderResponse {
	out := make([]OrderResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toOrderResponse(s))
	}
	return out
}

func toCounts(counts map[services.Tab]int) map[string]int {
	out := make(map[string]int, len(counts))
	for tab, n := range counts {
		out[string(tab)] = n
	}
	return out
}

func viewToResponse(v livesync.View) OrderListResponse {
	return OrderListResponse{
		Tab:    string(v.Tab),
		Query:  v.Query,
		Orders: toOrderResponses(queries.NewOrderSummaries(v.Orders)),
		Counts: toCounts(v.Counts),
	}
}

func transitionToResponse(tr services.Transition) TransitionResponse {
	return TransitionResponse{
		Operation: tr.Operation.String(),
		Order:     toOrderResponse(queries.NewOrderSummary(tr.Order)),
		Action:    actionToResponse(tr.Action),
	}
}

func actionToResponse(a order.DeliveryAction) DeliveryActionResponse {
	return DeliveryActionResponse{
		Key:                a.Key,
		Action:             a.Action,
		Timestamp:          a.Timestamp,
		NotificationAction: a.NotificationAction,
	}
}
