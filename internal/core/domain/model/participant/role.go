package participant

import (
	"fmt"
	"strings"

	"lastmile/internal/pkg/errs"
)

type Role int

const (
	RoleUnknown Role = iota
	RoleClient
	RoleCarrier
	RoleHost
)

// Wire names used by the identity store and the HTTP API.
const (
	roleClientName  = "client"
	roleCarrierName = "entregador"
	roleHostName    = "armazenador"
)

// ParseRole maps the identity store's profile kind to a Role.
// An empty kind is a plain client. A combined kind such as
// "entregador,armazenador" opens a session in its first listed role.
func ParseRole(kind string) (Role, error) {
	first, _, combined := strings.Cut(kind, ",")
	switch name := strings.ToLower(strings.TrimSpace(first)); {
	case name == "" && !combined, name == roleClientName:
		return RoleClient, nil
	case name == roleCarrierName:
		return RoleCarrier, nil
	case name == roleHostName:
		return RoleHost, nil
	}
	return RoleUnknown, errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a known profile kind", kind))
}

func (r Role) Validate() error {
	if r < RoleClient || r > RoleHost {
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%d is not a valid role", r))
	}
	return nil
}

func (r Role) String() string {
	switch r {
	case RoleClient:
		return roleClientName
	case RoleCarrier:
		return roleCarrierName
	case RoleHost:
		return roleHostName
	case RoleUnknown:
		return "unknown"
	}
	return "unknown"
}
