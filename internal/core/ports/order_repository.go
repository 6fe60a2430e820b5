package ports

import (
	"context"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
// Every failure is returned as *errs.RepositoryError; callers must not
// assume partial success.
type OrderRepository interface {
	// Add persists a newly placed order.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update applies a partial patch to the stored order. The write only
	// succeeds when the stored version equals patch.ExpectedVersion, in
	// which case the patch's action is appended to delivery_actions and the
	// version grows by one. A version mismatch yields *errs.ConflictError.
	//
	// Example:
	//   tr, err := engine.Accept(carrier, o)
	//   if err != nil {
	//       return err
	//   }
	//   if err = repo.Update(ctx, o.ID(), tr.Patch); errors.Is(err, errs.ErrConflict) {
	//       // reload and re-check the guard
	//   }
	Update(ctx context.Context, id kernel.UUID, patch order.Patch) error

	// Get retrieves an order by its identifier. A missing order is reported
	// as *errs.ObjectNotFoundError wrapped in *errs.RepositoryError.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// FetchForParticipant returns every order whose client_id contains
	// participantID, oldest first. Orders without delivery actions come back
	// with an empty log.
	FetchForParticipant(ctx context.Context, participantID string) ([]*order.Order, error)
}
