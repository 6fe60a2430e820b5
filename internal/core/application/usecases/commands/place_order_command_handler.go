package commands

import (
	"context"
	"time"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/pkg/errs"
)

// PlaceOrderCommandHandler handles the business logic for order placement.
// Creates the order in "processing" status, unaccepted and not stored,
// and announces it to every listed participant after commit.
type PlaceOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	announcer  ChangeAnnouncer
	now        func() time.Time
}

// NewPlaceOrderCommandHandler creates a handler for order placement.
// A nil clock means time.Now.
func NewPlaceOrderCommandHandler(
	uowFactory OrderUoWFactory,
	announcer ChangeAnnouncer,
	now func() time.Time,
) PlaceOrderCommandHandler {
	if now == nil {
		now = time.Now
	}

	return PlaceOrderCommandHandler{
		uowFactory: uowFactory,
		announcer:  announcer,
		now:        now,
	}
}

// Handle places the order. Only clients place orders; any other role is
// refused with a *errs.ValidationError.
func (h PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	session := cmd.Session()
	if session.Role() != participant.RoleClient {
		return nil, errs.NewValidationError(participant.MsgRoleNotAllowed)
	}

	placedAt := h.now().UTC()
	attributes := cmd.Attributes()
	attributes.CreatedAt = placedAt

	placed, err := order.NewOrder(kernel.NewUUID(), session.ParticipantID(), attributes, cmd.Secrets(), cmd.Assigned()...)
	if err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, placed); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	h.announcer.Announce(ctx, placed, placedAt)
	return placed, nil
}
