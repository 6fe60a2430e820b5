package order

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

	ErrOrderNameIsRequired = errs.NewValueIsRequiredError("order_name")
	ErrOwnerIsRequired     = errs.NewValueIsRequiredError("client_id")
	ErrCodeIsRequired      = errs.NewValueIsRequiredError("code")
)

type Weight string

const (
	WeightLight  Weight = "light"
	WeightMedium Weight = "medium"
)

func (w Weight) Validate() error {
	if w != WeightLight && w != WeightMedium {
		return errs.NewValueIsInvalidErrorWithCause("weight", fmt.Errorf("%q is not a valid weight", string(w)))
	}
	return nil
}

// Attributes are the descriptive fields set when the order is placed.
// The lifecycle never changes them.
type Attributes struct {
	Name        string
	ClientName  string
	Address     string
	Icon        string
	Weight      Weight
	Sensitive   bool
	Location    kernel.Location
	CreatedAt   time.Time
	ArrivalDate time.Time
}

func (a Attributes) validate() error {
	var nameErr error
	if a.Name == "" {
		nameErr = ErrOrderNameIsRequired
	}
	return errors.Join(nameErr, a.Weight.Validate(), a.Location.Validate())
}

// Secrets are the proof codes gating the two carrier transitions.
type Secrets struct {
	// Code authorizes sent -> received.
	Code string
	// StorageCode authorizes processing -> sent.
	StorageCode string
}

// Order is the aggregate root of one package's delivery record.
//
// Invariants:
//   - id, attributes and secrets never change after creation
//   - participants (client_id) and actions only grow
//   - received and canceled are terminal
//   - accepted and stored never return to false
//   - version grows by one with every applied patch
type Order struct {
	id           kernel.UUID
	participants []string
	status       Status
	accepted     bool
	stored       bool
	secrets      Secrets
	actions      DeliveryActions
	attributes   Attributes
	version      int64

	isConstructed bool
}

// NewOrder places a new order owned by ownerID: processing, not accepted,
// not stored, with an empty audit log. Extra participants (an assigned
// carrier or host) may be listed up front.
//
// Example:
//
//	loc, _ := kernel.NewLocation(-8.0578, -34.8829)
//	o, err := order.NewOrder(kernel.NewUUID(), "teste@gmail.com", order.Attributes{
//	    Name:     "Amazon #135",
//	    Weight:   order.WeightMedium,
//	    Location: loc,
//	}, order.Secrets{Code: "123", StorageCode: "321"})
func NewOrder(
	id kernel.UUID,
	ownerID string,
	attributes Attributes,
	secrets Secrets,
	participants ...string,
) (*Order, error) {
	o := &Order{
		status:        Processing,
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setParticipants(append([]string{ownerID}, participants...)),
		o.setAttributes(attributes),
		o.setSecrets(secrets),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreParams carries the persisted state of an order.
type RestoreParams struct {
	ID           kernel.UUID
	Participants []string
	Status       Status
	Accepted     bool
	Stored       bool
	Secrets      Secrets
	Actions      []DeliveryAction
	Attributes   Attributes
	Version      int64
}

// RestoreOrder reconstructs an Order from persistence without resetting its
// lifecycle state. A missing log is restored as an empty one.
func RestoreOrder(p RestoreParams) (*Order, error) {
	o := &Order{
		accepted:      p.Accepted,
		stored:        p.Stored,
		secrets:       p.Secrets,
		actions:       RestoreDeliveryActions(p.Actions),
		version:       p.Version,
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(p.ID),
		o.setParticipants(p.Participants),
		o.setStatus(p.Status),
		o.setAttributes(p.Attributes),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the Order was built by NewOrder or RestoreOrder.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID {
	return o.id
}

func (o *Order) Name() string {
	return o.attributes.Name
}

// Participants returns a copy of the client_id membership list, owner first.
func (o *Order) Participants() []string {
	return slices.Clone(o.participants)
}

// Owner returns the participant who placed the order.
func (o *Order) Owner() string {
	return o.participants[0]
}

// HasParticipant reports whether participantID is a member of client_id.
func (o *Order) HasParticipant(participantID string) bool {
	return slices.Contains(o.participants, participantID)
}

func (o *Order) Status() Status {
	return o.status
}

func (o *Order) Accepted() bool {
	return o.accepted
}

func (o *Order) Stored() bool {
	return o.stored
}

func (o *Order) Secrets() Secrets {
	return o.secrets
}

func (o *Order) Actions() DeliveryActions {
	return o.actions
}

func (o *Order) Attributes() Attributes {
	return o.attributes
}

// Version is the optimistic concurrency token of the stored order.
func (o *Order) Version() int64 {
	return o.version
}

// IsFinished reports whether the order reached a terminal status.
func (o *Order) IsFinished() bool {
	return o.status.IsTerminal()
}

// Clone returns a deep copy; mutating the copy never affects o.
func (o *Order) Clone() *Order {
	c := *o
	c.participants = slices.Clone(o.participants)
	c.actions = RestoreDeliveryActions(o.actions.entries)
	return &c
}

// Apply mutates the order with a patch after checking every invariant.
// On error the order is left untouched.
func (o *Order) Apply(p Patch) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := o.validatePatch(p); err != nil {
		return err
	}

	if p.Status != nil {
		o.status = *p.Status
	}
	if p.Accepted != nil {
		o.accepted = *p.Accepted
	}
	if p.Stored != nil {
		o.stored = *p.Stored
	}
	for _, participantID := range p.AddParticipants {
		if !o.HasParticipant(participantID) {
			o.participants = append(o.participants, participantID)
		}
	}
	o.actions = o.actions.Append(*p.Action)
	o.version++

	return nil
}

func (o *Order) validatePatch(p Patch) error {
	if p.ExpectedVersion != o.version {
		return errs.NewConflictError("order", o.id.String(), p.ExpectedVersion)
	}
	if p.Action == nil {
		return ErrActionIsRequired
	}
	if o.status.IsTerminal() {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%s is terminal", o.status))
	}
	if p.Status != nil {
		if err := o.status.ValidateChangeTo(*p.Status); err != nil {
			return err
		}
	}
	if p.Accepted != nil && o.accepted && !*p.Accepted {
		return errs.NewValueIsInvalidErrorWithCause("accepted", errors.New("cannot be withdrawn"))
	}
	if p.Stored != nil && o.stored && !*p.Stored {
		return errs.NewValueIsInvalidErrorWithCause("stored", errors.New("cannot be withdrawn"))
	}
	for _, participantID := range p.AddParticipants {
		if participantID == "" {
			return ErrOwnerIsRequired
		}
	}
	return nil
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setParticipants(participants []string) error {
	if len(participants) == 0 || participants[0] == "" {
		return ErrOwnerIsRequired
	}

	unique := make([]string, 0, len(participants))
	for _, p := range participants {
		if p != "" && !slices.Contains(unique, p) {
			unique = append(unique, p)
		}
	}
	o.participants = unique
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	o.status = status
	return nil
}

func (o *Order) setAttributes(attributes Attributes) error {
	if err := attributes.validate(); err != nil {
		return err
	}
	if attributes.CreatedAt.IsZero() {
		attributes.CreatedAt = time.Now().UTC()
	}
	o.attributes = attributes
	return nil
}

func (o *Order) setSecrets(secrets Secrets) error {
	if secrets.Code == "" || secrets.StorageCode == "" {
		return ErrCodeIsRequired
	}
	o.secrets = secrets
	return nil
}
