package participant

import (
	"errors"
	"fmt"

	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

// MsgRoleNotAllowed is shown when a participant triggers an operation
// reserved to another role.
const MsgRoleNotAllowed = "Operação não permitida para este perfil"

var (
	ErrSessionIsNotConstructed = errors.New("Session must be created via NewSession constructor")
	ErrParticipantIDIsRequired = errs.NewValueIsRequiredError("participant id")
)

// Session is the explicit session context of one participant. It is read
// once from the identity store and passed to the synchronization controller,
// the classifier and the command handlers.
type Session struct {
	participantID string
	role          Role
	guard         guard.ConstructorGuard
}

func NewSession(participantID string, role Role) (Session, error) {
	if participantID == "" {
		return Session{}, ErrParticipantIDIsRequired
	}
	if err := role.Validate(); err != nil {
		return Session{}, err
	}

	return Session{
		participantID: participantID,
		role:          role,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

func (s Session) Validate() error {
	return s.guard.Validate(ErrSessionIsNotConstructed)
}

func (s Session) ParticipantID() string {
	return s.participantID
}

func (s Session) Role() Role {
	return s.role
}

// Carrier returns the carrier capability of the session, or a
// ValidationError when the participant is not an entregador.
func (s Session) Carrier() (Carrier, error) {
	if err := s.requireRole(RoleCarrier); err != nil {
		return Carrier{}, err
	}
	return Carrier{id: s.participantID}, nil
}

// Host returns the storage host capability of the session, or a
// ValidationError when the participant is not an armazenador.
func (s Session) Host() (Host, error) {
	if err := s.requireRole(RoleHost); err != nil {
		return Host{}, err
	}
	return Host{id: s.participantID}, nil
}

func (s Session) requireRole(role Role) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.role != role {
		return errs.NewValidationErrorWithCause(
			MsgRoleNotAllowed,
			fmt.Errorf("role %s is required, session has %s", role, s.role),
		)
	}
	return nil
}

// Carrier is the capability to run carrier-only lifecycle operations.
type Carrier struct {
	id string
}

func (c Carrier) ID() string {
	return c.id
}

// Host is the capability to run storage-host-only lifecycle operations.
type Host struct {
	id string
}

func (h Host) ID() string {
	return h.id
}
