package queries

import (
	"time"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
)

// OrderSummary is the read model of one order as a participant sees it.
// Proof codes are never part of it.
type OrderSummary struct {
	ID                 kernel.UUID
	Name               string
	ClientName         string
	Address            string
	Icon               string
	Weight             string
	Sensitive          bool
	Location           kernel.Location
	Status             string
	Accepted           bool
	Stored             bool
	CurrentAction      string
	NotificationAction string
	Participants       []string
	CreatedAt          time.Time
	ArrivalDate        time.Time
	Version            int64
}

func NewOrderSummary(o *order.Order) OrderSummary {
	attributes := o.Attributes()

	summary := OrderSummary{
		ID:            o.ID(),
		Name:          o.Name(),
		ClientName:    attributes.ClientName,
		Address:       attributes.Address,
		Icon:          attributes.Icon,
		Weight:        string(attributes.Weight),
		Sensitive:     attributes.Sensitive,
		Location:      attributes.Location,
		Status:        o.Status().String(),
		Accepted:      o.Accepted(),
		Stored:        o.Stored(),
		CurrentAction: o.Actions().CurrentLabel(),
		Participants:  o.Participants(),
		CreatedAt:     attributes.CreatedAt,
		ArrivalDate:   attributes.ArrivalDate,
		Version:       o.Version(),
	}
	if last, ok := o.Actions().Last(); ok {
		summary.NotificationAction = last.NotificationAction
	}
	return summary
}

func NewOrderSummaries(orders []*order.Order) []OrderSummary {
	summaries := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, NewOrderSummary(o))
	}
	return summaries
}
