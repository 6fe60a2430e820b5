package order

import (
	"fmt"

	"lastmile/internal/pkg/errs"
)

// Status is the delivery phase of an order.
//
//	processing ──> sent ──> received
//	    │
//	    └──> canceled
//
// received and canceled are terminal.
type Status int

const (
	Unknown Status = iota
	Processing
	Sent
	Received
	Canceled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:    "unknown",
		Processing: "processing",
		Sent:       "sent",
		Received:   "received",
		Canceled:   "canceled",
	}
}

// ParseStatus maps the stored status name back to a Status.
func ParseStatus(s string) (Status, error) {
	for status, name := range getStatusStrings() {
		if status != Unknown && name == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

func (s Status) Validate() error {
	if s < Processing || s > Canceled {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the stored name, e.g. "processing".
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == Received || s == Canceled
}

// ValidateChangeTo checks that the phase may move from s to next.
// Staying in the same non-terminal phase is allowed.
func (s Status) ValidateChangeTo(next Status) error {
	if err := next.Validate(); err != nil {
		return err
	}

	if s.IsTerminal() {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is terminal", s),
		)
	}

	allowed := false
	switch next {
	case Processing:
		allowed = s == Processing
	case Sent:
		allowed = s == Processing || s == Sent
	case Received:
		allowed = s == Sent
	case Canceled:
		allowed = s == Processing
	case Unknown:
	}

	if !allowed {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s cannot change to %s", s, next),
		)
	}
	return nil
}
