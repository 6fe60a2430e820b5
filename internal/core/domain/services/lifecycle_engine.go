package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/pkg/errs"
)

// Labels appended to delivery_actions, one per transition.
const (
	LabelAccepted   = "Esperando retirada do entregador"
	LabelRejected   = "Entrega cancelada"
	LabelStored     = "Pacote armazenado"
	LabelDispatched = "Saiu para entrega"
	LabelDelivered  = "Pedido entregue"
)

// Notification texts stored with each entry for the order owner.
const (
	NotifyAccepted   = "Um entregador aceitou seu pedido"
	NotifyRejected   = "Seu pedido foi cancelado"
	NotifyStored     = "Seu pacote chegou ao ponto de armazenamento"
	NotifyDispatched = "Seu pedido saiu para entrega"
	NotifyDelivered  = "Seu pedido foi entregue"
)

// User-visible messages of refused operations.
const (
	MsgInvalidCode          = "Código inválido"
	MsgCodeRequired         = "Informe o código"
	MsgTransitionNotAllowed = "Operação não permitida para este pedido"
)

var ErrUnknownOperation = errors.New("unknown lifecycle operation")

type Operation int

const (
	OpUnknown Operation = iota
	OpAccept
	OpReject
	OpStore
	OpConfirmStorage
	OpAuthenticateStorage
	OpConfirmDelivery
)

var operationNames = map[Operation]string{
	OpAccept:              "accept",
	OpReject:              "reject",
	OpStore:               "store",
	OpConfirmStorage:      "confirm-storage",
	OpAuthenticateStorage: "authenticate-storage",
	OpConfirmDelivery:     "confirm-delivery",
}

// ParseOperation maps the HTTP action name, e.g. "confirm-delivery".
func ParseOperation(name string) (Operation, error) {
	for op, n := range operationNames {
		if n == name {
			return op, nil
		}
	}
	return OpUnknown, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

func (op Operation) String() string {
	if n, ok := operationNames[op]; ok {
		return n
	}
	return "unknown"
}

// RequiresProof reports whether the operation needs a user-entered code.
func (op Operation) RequiresProof() bool {
	return op == OpConfirmStorage || op == OpAuthenticateStorage || op == OpConfirmDelivery
}

// Transition is the outcome of a legal operation: the next state of the
// order (a copy) and the patch the caller persists to reach it.
type Transition struct {
	Operation Operation
	Order     *order.Order
	Patch     order.Patch
	Action    order.DeliveryAction
}

// LifecycleEngine owns the order transition table. It has no I/O: every
// operation reads the given order, decides whether the operation is legal
// for the acting participant and returns the resulting state. The input
// order is never modified, so a refused operation leaves it untouched.
//
// Guards are re-checked on every call; replaying an operation that already
// happened fails its guard instead of appending a second audit entry.
//
// Proof codes are compared with a constant-time comparison. Pass/fail is
// still exact string equality.
//
// Example:
//
//	engine := services.NewLifecycleEngine(time.Now)
//	carrier, err := session.Carrier()
//	if err != nil {
//	    return err
//	}
//	tr, err := engine.ConfirmDelivery(carrier, o, input)
//	if err != nil {
//	    return err // *errs.ValidationError, nothing to persist
//	}
//	return repo.Update(ctx, o.ID(), tr.Patch)
type LifecycleEngine struct {
	now func() time.Time
}

// NewLifecycleEngine creates an engine stamping audit entries with now.
// A nil clock means time.Now.
func NewLifecycleEngine(now func() time.Time) LifecycleEngine {
	if now == nil {
		now = time.Now
	}
	return LifecycleEngine{now: now}
}

// Execute runs op on behalf of the session, resolving the role capability
// the operation needs. proof is ignored by operations without a code.
func (e LifecycleEngine) Execute(
	session participant.Session,
	op Operation,
	o *order.Order,
	proof string,
) (Transition, error) {
	if op == OpStore {
		host, err := session.Host()
		if err != nil {
			return Transition{}, err
		}
		return e.Store(host, o)
	}

	if _, ok := operationNames[op]; !ok {
		return Transition{}, errs.NewValidationErrorWithCause(MsgTransitionNotAllowed, fmt.Errorf("%w: %d", ErrUnknownOperation, op))
	}

	carrier, err := session.Carrier()
	if err != nil {
		return Transition{}, err
	}

	switch op {
	case OpAccept:
		return e.Accept(carrier, o)
	case OpReject:
		return e.Reject(carrier, o)
	case OpConfirmStorage:
		return e.ConfirmStorage(carrier, o, proof)
	case OpAuthenticateStorage:
		return e.AuthenticateStorage(carrier, o, proof)
	case OpConfirmDelivery:
		return e.ConfirmDelivery(carrier, o, proof)
	case OpStore, OpUnknown:
	}
	return Transition{}, errs.NewValidationErrorWithCause(MsgTransitionNotAllowed, ErrUnknownOperation)
}

// Accept claims an unaccepted order for the carrier.
func (e LifecycleEngine) Accept(carrier participant.Carrier, o *order.Order) (Transition, error) {
	if err := e.checkCarrier(carrier, o); err != nil {
		return Transition{}, err
	}
	if err := requireUnaccepted(o); err != nil {
		return Transition{}, err
	}

	return e.transition(OpAccept, o, order.Patch{
		Accepted:        ptr(true),
		AddParticipants: []string{carrier.ID()},
	}, LabelAccepted, NotifyAccepted)
}

// Reject declines an order that is pending for carriers, i.e. stored and
// not accepted yet. Accept and reject are the two exclusive outcomes of the
// same decision: both set accepted, so neither can follow the other.
func (e LifecycleEngine) Reject(carrier participant.Carrier, o *order.Order) (Transition, error) {
	if err := e.checkCarrier(carrier, o); err != nil {
		return Transition{}, err
	}
	if err := requireUnaccepted(o); err != nil {
		return Transition{}, err
	}
	if !o.Stored() {
		return Transition{}, notAllowed(errors.New("order is not stored"))
	}

	return e.transition(OpReject, o, order.Patch{
		Accepted: ptr(true),
		Status:   ptr(order.Canceled),
	}, LabelRejected, NotifyRejected)
}

// Store records that the package reached the host's storage point.
func (e LifecycleEngine) Store(host participant.Host, o *order.Order) (Transition, error) {
	if err := o.Validate(); err != nil {
		return Transition{}, err
	}
	if host.ID() == "" {
		return Transition{}, errs.NewValidationError(participant.MsgRoleNotAllowed)
	}
	if err := requireActive(o); err != nil {
		return Transition{}, err
	}
	if o.Stored() {
		return Transition{}, notAllowed(errors.New("order is already stored"))
	}

	return e.transition(OpStore, o, order.Patch{
		Stored:          ptr(true),
		Status:          ptr(order.Processing),
		AddParticipants: []string{host.ID()},
	}, LabelStored, NotifyStored)
}

// ConfirmStorage is the carrier's pickup at a storage point the order is
// known to be at. It requires the stored flag and then behaves exactly
// like AuthenticateStorage.
func (e LifecycleEngine) ConfirmStorage(carrier participant.Carrier, o *order.Order, input string) (Transition, error) {
	if err := e.checkCarrier(carrier, o); err != nil {
		return Transition{}, err
	}
	if !o.Stored() {
		return Transition{}, notAllowed(errors.New("order is not stored"))
	}

	tr, err := e.AuthenticateStorage(carrier, o, input)
	if err != nil {
		return Transition{}, err
	}
	tr.Operation = OpConfirmStorage
	return tr, nil
}

// AuthenticateStorage moves an accepted, processing order out for delivery
// when input matches the storage code.
func (e LifecycleEngine) AuthenticateStorage(carrier participant.Carrier, o *order.Order, input string) (Transition, error) {
	if err := e.checkCarrier(carrier, o); err != nil {
		return Transition{}, err
	}
	if err := requireAssigned(carrier, o); err != nil {
		return Transition{}, err
	}
	if o.Status() != order.Processing {
		return Transition{}, notAllowed(fmt.Errorf("order is %s, expected %s", o.Status(), order.Processing))
	}
	if err := verifyCode(input, o.Secrets().StorageCode); err != nil {
		return Transition{}, err
	}

	return e.transition(OpAuthenticateStorage, o, order.Patch{
		Status: ptr(order.Sent),
		Stored: ptr(true),
	}, LabelDispatched, NotifyDispatched)
}

// ConfirmDelivery completes a sent order when input matches the delivery code.
func (e LifecycleEngine) ConfirmDelivery(carrier participant.Carrier, o *order.Order, input string) (Transition, error) {
	if err := e.checkCarrier(carrier, o); err != nil {
		return Transition{}, err
	}
	if err := requireAssigned(carrier, o); err != nil {
		return Transition{}, err
	}
	if o.Status() != order.Sent {
		return Transition{}, notAllowed(fmt.Errorf("order is %s, expected %s", o.Status(), order.Sent))
	}
	if err := verifyCode(input, o.Secrets().Code); err != nil {
		return Transition{}, err
	}

	return e.transition(OpConfirmDelivery, o, order.Patch{
		Status: ptr(order.Received),
	}, LabelDelivered, NotifyDelivered)
}

func (e LifecycleEngine) checkCarrier(carrier participant.Carrier, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if carrier.ID() == "" {
		return errs.NewValidationError(participant.MsgRoleNotAllowed)
	}
	return nil
}

func (e LifecycleEngine) transition(
	op Operation,
	o *order.Order,
	patch order.Patch,
	label, notification string,
) (Transition, error) {
	action, err := order.NewDeliveryAction(label, notification, e.now())
	if err != nil {
		return Transition{}, err
	}
	action.Key = o.Actions().KeyFor(action.Timestamp)

	patch.Action = &action
	patch.ExpectedVersion = o.Version()

	next := o.Clone()
	if err = next.Apply(patch); err != nil {
		return Transition{}, notAllowed(err)
	}

	return Transition{
		Operation: op,
		Order:     next,
		Patch:     patch,
		Action:    action,
	}, nil
}

func requireActive(o *order.Order) error {
	if o.IsFinished() {
		return notAllowed(fmt.Errorf("order is %s", o.Status()))
	}
	return nil
}

func requireUnaccepted(o *order.Order) error {
	if err := requireActive(o); err != nil {
		return err
	}
	if o.Accepted() {
		return notAllowed(errors.New("order was already accepted or rejected"))
	}
	return nil
}

func requireAccepted(o *order.Order) error {
	if err := requireActive(o); err != nil {
		return err
	}
	if !o.Accepted() {
		return notAllowed(errors.New("order was not accepted"))
	}
	return nil
}

// requireAssigned admits only a carrier listed on an accepted order.
func requireAssigned(carrier participant.Carrier, o *order.Order) error {
	if err := requireAccepted(o); err != nil {
		return err
	}
	if !o.HasParticipant(carrier.ID()) {
		return notAllowed(fmt.Errorf("carrier %s is not assigned to the order", carrier.ID()))
	}
	return nil
}

func verifyCode(input, secret string) error {
	if input == "" {
		return errs.NewValidationErrorWithCause(MsgCodeRequired, order.ErrCodeIsRequired)
	}
	if subtle.ConstantTimeCompare([]byte(input), []byte(secret)) != 1 {
		return errs.NewValidationError(MsgInvalidCode)
	}
	return nil
}

func notAllowed(cause error) error {
	return errs.NewValidationErrorWithCause(MsgTransitionNotAllowed, cause)
}

func ptr[T any](v T) *T {
	return &v
}
