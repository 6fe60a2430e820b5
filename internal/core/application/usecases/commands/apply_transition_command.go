package commands

import (
	"errors"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/guard"
)

var ErrApplyTransitionCommandIsNotConstructed = errors.New(
	"ApplyTransitionCommand must be created via NewApplyTransitionCommand constructor",
)

// ApplyTransitionCommand asks the lifecycle engine to run one operation on
// an order on behalf of a session. Proof is the user-entered code of the
// operations gated by one and ignored otherwise.
//
// Example:
//
//	cmd, err := NewApplyTransitionCommand(session, services.OpConfirmDelivery, orderID, "123")
//	if err != nil {
//	    return err
//	}
//	tr, err := handler.Handle(ctx, cmd)
type ApplyTransitionCommand struct { //nolint:recvcheck //using for validation
	session   participant.Session
	operation services.Operation
	orderID   kernel.UUID
	proof     string

	guard guard.ConstructorGuard
}

func NewApplyTransitionCommand(
	session participant.Session,
	operation services.Operation,
	orderID kernel.UUID,
	proof string,
) (ApplyTransitionCommand, error) {
	cmd := ApplyTransitionCommand{
		proof: proof,
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setSession(session),
		cmd.setOperation(operation),
		cmd.setOrderID(orderID),
	); err != nil {
		return ApplyTransitionCommand{}, err
	}

	return cmd, nil
}

func (c ApplyTransitionCommand) Validate() error {
	return c.guard.Validate(ErrApplyTransitionCommandIsNotConstructed)
}

func (c ApplyTransitionCommand) Session() participant.Session {
	return c.session
}

func (c ApplyTransitionCommand) Operation() services.Operation {
	return c.operation
}

func (c ApplyTransitionCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c ApplyTransitionCommand) Proof() string {
	return c.proof
}

func (c *ApplyTransitionCommand) setSession(session participant.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	c.session = session
	return nil
}

func (c *ApplyTransitionCommand) setOperation(operation services.Operation) error {
	if _, err := services.ParseOperation(operation.String()); err != nil {
		return err
	}

	c.operation = operation
	return nil
}

func (c *ApplyTransitionCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}
