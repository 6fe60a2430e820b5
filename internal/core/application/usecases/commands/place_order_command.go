package commands

import (
	"errors"

	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/pkg/guard"
)

var ErrPlaceOrderCommandIsNotConstructed = errors.New(
	"PlaceOrderCommand must be created via NewPlaceOrderCommand constructor",
)

// PlaceOrderCommand represents a client placing a new delivery order.
// The session participant becomes the owner; assigned lists carriers or
// hosts that should see the order from the start.
//
// Example:
//
//	cmd, err := NewPlaceOrderCommand(session, order.Attributes{
//	    Name:     "Amazon #135",
//	    Weight:   order.WeightMedium,
//	    Location: loc,
//	}, order.Secrets{Code: "123", StorageCode: "321"}, "joao@example.com")
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//	placed, err := handler.Handle(ctx, cmd)
type PlaceOrderCommand struct { //nolint:recvcheck //using for validation
	session    participant.Session
	attributes order.Attributes
	secrets    order.Secrets
	assigned   []string

	guard guard.ConstructorGuard
}

func NewPlaceOrderCommand(
	session participant.Session,
	attributes order.Attributes,
	secrets order.Secrets,
	assigned ...string,
) (PlaceOrderCommand, error) {
	cmd := PlaceOrderCommand{
		attributes: attributes,
		assigned:   append([]string(nil), assigned...),
		guard:      guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setSession(session),
		cmd.setSecrets(secrets),
	); err != nil {
		return PlaceOrderCommand{}, err
	}

	return cmd, nil
}

func (c PlaceOrderCommand) Validate() error {
	return c.guard.Validate(ErrPlaceOrderCommandIsNotConstructed)
}

func (c PlaceOrderCommand) Session() participant.Session {
	return c.session
}

func (c PlaceOrderCommand) Attributes() order.Attributes {
	return c.attributes
}

func (c PlaceOrderCommand) Secrets() order.Secrets {
	return c.secrets
}

func (c PlaceOrderCommand) Assigned() []string {
	return append([]string(nil), c.assigned...)
}

func (c *PlaceOrderCommand) setSession(session participant.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	c.session = session
	return nil
}

func (c *PlaceOrderCommand) setSecrets(secrets order.Secrets) error {
	if secrets.Code == "" || secrets.StorageCode == "" {
		return order.ErrCodeIsRequired
	}

	c.secrets = secrets
	return nil
}
