package commands

import (
	"context"
	"errors"

	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/logger"
	"lastmile/internal/pkg/metrics"

	"github.com/im7mortal/kmutex"
	"go.uber.org/zap"
)

const DefaultConflictRetries = 3

// ApplyTransitionCommandHandler runs one lifecycle operation end to end:
// load the order, let the engine decide, persist the patch under the
// version check and announce the change after commit.
//
// Commands on the same order id are serialized inside the process by a
// keyed mutex. Writers in other processes are caught by the version check;
// on a conflict the handler reloads the order and re-checks the guard, at
// most retries more times.
//
// Example:
//
//	handler := NewApplyTransitionCommandHandler(uowFactory, engine, announcer, hub, m, logger, 3)
//	tr, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, errs.ErrValidation):
//	    // refused, show err.(*errs.ValidationError).UserMessage
//	case errors.Is(err, errs.ErrConflict):
//	    // lost the race retries+1 times
//	case err != nil:
//	    // repository failure
//	}
type ApplyTransitionCommandHandler struct {
	uowFactory OrderUoWFactory
	engine     services.LifecycleEngine
	announcer  ChangeAnnouncer
	view       OptimisticView
	locks      *kmutex.Kmutex
	metrics    *metrics.Metrics
	logger     *zap.Logger
	retries    int
}

// NewApplyTransitionCommandHandler creates the handler. view may be nil.
// A negative retries means DefaultConflictRetries.
func NewApplyTransitionCommandHandler(
	uowFactory OrderUoWFactory,
	engine services.LifecycleEngine,
	announcer ChangeAnnouncer,
	view OptimisticView,
	m *metrics.Metrics,
	l *zap.Logger,
	retries int,
) ApplyTransitionCommandHandler {
	if view == nil {
		view = noopView{}
	}
	if retries < 0 {
		retries = DefaultConflictRetries
	}

	return ApplyTransitionCommandHandler{
		uowFactory: uowFactory,
		engine:     engine,
		announcer:  announcer,
		view:       view,
		locks:      kmutex.New(),
		metrics:    m,
		logger:     logger.Component(l, "apply_transition_handler"),
		retries:    retries,
	}
}

// Handle returns the committed transition. A refused operation is a
// *errs.ValidationError and nothing is written.
func (h ApplyTransitionCommandHandler) Handle(
	ctx context.Context,
	command ApplyTransitionCommand,
) (services.Transition, error) {
	if err := command.Validate(); err != nil {
		return services.Transition{}, err
	}

	key := command.OrderID().String()
	h.locks.Lock(key)
	defer h.locks.Unlock(key)
	// a request canceled while queued on the lock writes nothing
	if err := ctx.Err(); err != nil {
		return services.Transition{}, err
	}

	var (
		tr  services.Transition
		err error
	)
	for attempt := 0; attempt <= h.retries; attempt++ {
		tr, err = h.attempt(ctx, command)
		if !errors.Is(err, errs.ErrConflict) {
			break
		}
		h.logger.Debug("order changed concurrently, retrying",
			zap.String("order_id", key),
			zap.Int("attempt", attempt+1),
		)
	}

	op := command.Operation().String()
	switch {
	case err == nil:
		h.metrics.Transition(op, metrics.OutcomeApplied)
	case errors.Is(err, errs.ErrValidation):
		h.metrics.Transition(op, metrics.OutcomeRefused)
		return services.Transition{}, err
	case errors.Is(err, errs.ErrConflict):
		h.metrics.Transition(op, metrics.OutcomeConflict)
		return services.Transition{}, err
	default:
		h.metrics.Transition(op, metrics.OutcomeFailed)
		h.logger.Error("transition failed",
			zap.String("order_id", key),
			zap.String("operation", op),
			zap.Error(err),
		)
		return services.Transition{}, err
	}

	h.announcer.Announce(ctx, tr.Order, tr.Action.Timestamp)
	return tr, nil
}

func (h ApplyTransitionCommandHandler) attempt(
	ctx context.Context,
	command ApplyTransitionCommand,
) (services.Transition, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return services.Transition{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()

	current, err := orderRepo.Get(ctx, command.OrderID())
	if err != nil {
		return services.Transition{}, err
	}

	tr, err := h.engine.Execute(command.Session(), command.Operation(), current, command.Proof())
	if err != nil {
		return services.Transition{}, err
	}

	rollback := h.view.ApplyOptimistic(tr.Order.Participants(), tr.Order)

	if err = orderRepo.Update(ctx, command.OrderID(), tr.Patch); err != nil {
		rollback()
		return services.Transition{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		rollback()
		return services.Transition{}, err
	}

	return tr, nil
}
