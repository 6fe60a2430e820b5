// Package queries contains read operations. Queries classify orders and never
// expose proof codes.
package queries

import (
	"errors"

	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/guard"
)

var ErrGetParticipantOrdersQueryIsNotConstructed = errors.New(
	"GetParticipantOrdersQuery must be created via NewGetParticipantOrdersQuery constructor",
)

// GetParticipantOrdersQuery retrieves the orders of the session participant
// that fall into one tab, optionally narrowed by a free-text search over
// the order name.
//
// Example:
//
//	query, err := NewGetParticipantOrdersQuery(session, services.TabInProgress, "amazon")
//	if err != nil {
//	    return err
//	}
//	resp, err := handler.Handle(ctx, query)
type GetParticipantOrdersQuery struct {
	session participant.Session
	tab     services.Tab
	text    string

	guard guard.ConstructorGuard
}

func NewGetParticipantOrdersQuery(
	session participant.Session,
	tab services.Tab,
	text string,
) (GetParticipantOrdersQuery, error) {
	if err := session.Validate(); err != nil {
		return GetParticipantOrdersQuery{}, err
	}
	if _, err := services.ParseTab(string(tab)); err != nil {
		return GetParticipantOrdersQuery{}, err
	}

	return GetParticipantOrdersQuery{
		session: session,
		tab:     tab,
		text:    text,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetParticipantOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetParticipantOrdersQueryIsNotConstructed)
}

func (q GetParticipantOrdersQuery) Session() participant.Session {
	return q.session
}

func (q GetParticipantOrdersQuery) Tab() services.Tab {
	return q.tab
}

func (q GetParticipantOrdersQuery) Text() string {
	return q.text
}

// GetParticipantOrdersQueryResponse holds the orders of the selected tab and
// how many orders each tab holds under the same search.
type GetParticipantOrdersQueryResponse struct {
	Tab    services.Tab
	Orders []OrderSummary
	Counts map[services.Tab]int
}
