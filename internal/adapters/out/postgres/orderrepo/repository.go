package orderrepo

import (
	"context"
	"encoding/json"
	"errors"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/pkg/errs"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Add saves a new order to the database.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto, err := fromDomain(aggregate)
	if err != nil {
		return errs.NewRepositoryError("add order", err)
	}

	if err = r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return errs.NewRepositoryError("add order", err)
	}
	return nil
}

// Update applies the patch in a single statement guarded by the version
// column. New participants keep their arrival order and are never
// duplicated.
func (r *GormOrderRepository) Update(ctx context.Context, id kernel.UUID, patch order.Patch) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if patch.Action == nil {
		return order.ErrActionIsRequired
	}

	entry, err := json.Marshal(map[string]DeliveryActionDTO{
		patch.Action.Key: actionFromDomain(*patch.Action),
	})
	if err != nil {
		return errs.NewRepositoryError("update order", err)
	}

	updates := map[string]any{
		"delivery_actions": gorm.Expr("COALESCE(delivery_actions, '{}'::jsonb) || ?::jsonb", string(entry)),
		"version":          gorm.Expr("version + 1"),
	}
	if patch.Status != nil {
		updates["status"] = patch.Status.String()
	}
	if patch.Accepted != nil {
		updates["accepted"] = *patch.Accepted
	}
	if patch.Stored != nil {
		updates["stored"] = *patch.Stored
	}
	if len(patch.AddParticipants) > 0 {
		updates["client_id"] = gorm.Expr(
			"client_id || ARRAY(SELECT p FROM unnest(?::text[]) WITH ORDINALITY AS t(p, n) WHERE NOT p = ANY(client_id) ORDER BY n)",
			pq.StringArray(patch.AddParticipants),
		)
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND version = ?", id.Bytes(), patch.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return errs.NewRepositoryError("update order", result.Error)
	}

	if result.RowsAffected == 0 {
		return r.missOrConflict(ctx, id, patch.ExpectedVersion)
	}
	return nil
}

func (r *GormOrderRepository) missOrConflict(ctx context.Context, id kernel.UUID, expected int64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&OrderDTO{}).Where("id = ?", id.Bytes()).Count(&count).Error; err != nil {
		return errs.NewRepositoryError("update order", err)
	}
	if count == 0 {
		return errs.NewRepositoryError("update order", errs.NewObjectNotFoundError("order", id.String()))
	}
	return errs.NewConflictError("order", id.String(), expected)
}

// Get retrieves an order by ID.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewRepositoryError("get order", errs.NewObjectNotFoundError("order", id.String()))
		}
		return nil, errs.NewRepositoryError("get order", err)
	}

	o, err := toDomain(dto)
	if err != nil {
		return nil, errs.NewRepositoryError("get order", err)
	}
	return o, nil
}

// FetchForParticipant retrieves every order whose client_id contains participantID.
func (r *GormOrderRepository) FetchForParticipant(ctx context.Context, participantID string) ([]*order.Order, error) {
	var dtos []OrderDTO
	if err := r.db.WithContext(ctx).
		Where("? = ANY(client_id)", participantID).
		Order("creation_date, id").
		Find(&dtos).Error; err != nil {
		return nil, errs.NewRepositoryError("fetch orders for participant", err)
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, errs.NewRepositoryError("fetch orders for participant", err)
		}
		orders = append(orders, o)
	}

	return orders, nil
}
