// Package orderrepo provides data transfer objects and mapping functions for order persistence.
// This package implements the repository pattern for the order domain aggregate, handling
// the conversion between domain entities and database representations.
package orderrepo

import (
	"encoding/json"
	"fmt"
	"time"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// OrderDTO represents the database structure for persisting order aggregates.
// client_id is a text array searched with ANY; delivery_actions is a jsonb
// object keyed by entry key, so appending is a single || expression.
type OrderDTO struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrderName       string         `gorm:"not null"`
	ClientID        pq.StringArray `gorm:"column:client_id;type:text[];not null"`
	Status          string         `gorm:"type:varchar(16);not null;index"`
	Accepted        bool           `gorm:"not null"`
	Stored          bool           `gorm:"not null"`
	Code            string         `gorm:"not null"`
	StorageCode     string         `gorm:"not null"`
	DeliveryActions datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	Weight          string         `gorm:"type:varchar(16)"`
	Sensitive       bool
	Address         string
	ClientName      string
	Icon            string
	Location        LocationDTO `gorm:"embedded;embeddedPrefix:location_"`
	CreationDate    time.Time   `gorm:"not null"`
	ArrivalDate     *time.Time
	Version         int64 `gorm:"not null;default:0"`
}

// TableName specifies the database table name for order entities.
// Overrides GORM's default naming convention to use "orders".
func (OrderDTO) TableName() string {
	return "orders"
}

// LocationDTO represents the embedded delivery location within the order table.
type LocationDTO struct {
	Latitude  float64
	Longitude float64
}

// DeliveryActionDTO is one value of the delivery_actions object.
type DeliveryActionDTO struct {
	Action             string    `json:"action"`
	Timestamp          time.Time `json:"timestamp"`
	NotificationAction string    `json:"notification_action,omitempty"`
}

func actionsFromDomain(entries []order.DeliveryAction) (datatypes.JSON, error) {
	m := make(map[string]DeliveryActionDTO, len(entries))
	for _, e := range entries {
		m[e.Key] = actionFromDomain(e)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func actionFromDomain(e order.DeliveryAction) DeliveryActionDTO {
	return DeliveryActionDTO{
		Action:             e.Action,
		Timestamp:          e.Timestamp,
		NotificationAction: e.NotificationAction,
	}
}

func actionsToDomain(raw datatypes.JSON) ([]order.DeliveryAction, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var m map[string]DeliveryActionDTO
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode delivery_actions: %w", err)
	}

	entries := make([]order.DeliveryAction, 0, len(m))
	for key, a := range m {
		entries = append(entries, order.DeliveryAction{
			Key:                key,
			Action:             a.Action,
			Timestamp:          a.Timestamp,
			NotificationAction: a.NotificationAction,
		})
	}
	return entries, nil
}

// fromDomain converts an order domain aggregate to its database representation.
func fromDomain(o *order.Order) (OrderDTO, error) {
	actions, err := actionsFromDomain(o.Actions().Entries())
	if err != nil {
		return OrderDTO{}, err
	}

	attrs := o.Attributes()
	var arrival *time.Time
	if !attrs.ArrivalDate.IsZero() {
		at := attrs.ArrivalDate
		arrival = &at
	}

	return OrderDTO{
		ID:              o.ID().Bytes(),
		OrderName:       attrs.Name,
		ClientID:        pq.StringArray(o.Participants()),
		Status:          o.Status().String(),
		Accepted:        o.Accepted(),
		Stored:          o.Stored(),
		Code:            o.Secrets().Code,
		StorageCode:     o.Secrets().StorageCode,
		DeliveryActions: actions,
		Weight:          string(attrs.Weight),
		Sensitive:       attrs.Sensitive,
		Address:         attrs.Address,
		ClientName:      attrs.ClientName,
		Icon:            attrs.Icon,
		Location: LocationDTO{
			Latitude:  attrs.Location.Latitude(),
			Longitude: attrs.Location.Longitude(),
		},
		CreationDate: attrs.CreatedAt,
		ArrivalDate:  arrival,
		Version:      o.Version(),
	}, nil
}

// toDomain converts a database DTO to an order domain aggregate using RestoreOrder.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	status, err := order.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	loc, err := kernel.NewLocation(dto.Location.Latitude, dto.Location.Longitude)
	if err != nil {
		return nil, err
	}

	actions, err := actionsToDomain(dto.DeliveryActions)
	if err != nil {
		return nil, err
	}

	var arrival time.Time
	if dto.ArrivalDate != nil {
		arrival = *dto.ArrivalDate
	}

	return order.RestoreOrder(order.RestoreParams{
		ID:           id,
		Participants: dto.ClientID,
		Status:       status,
		Accepted:     dto.Accepted,
		Stored:       dto.Stored,
		Secrets:      order.Secrets{Code: dto.Code, StorageCode: dto.StorageCode},
		Actions:      actions,
		Attributes: order.Attributes{
			Name:        dto.OrderName,
			ClientName:  dto.ClientName,
			Address:     dto.Address,
			Icon:        dto.Icon,
			Weight:      order.Weight(dto.Weight),
			Sensitive:   dto.Sensitive,
			Location:    loc,
			CreatedAt:   dto.CreationDate,
			ArrivalDate: arrival,
		},
		Version: dto.Version,
	})
}
