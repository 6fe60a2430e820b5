package services

import (
	"fmt"
	"strings"

	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/pkg/errs"
)

type Tab string

const (
	TabPending    Tab = "Pendentes"
	TabInProgress Tab = "Em andamento"
	TabFinished   Tab = "Finalizados"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabPending, TabInProgress, TabFinished}

// ParseTab accepts the display name or one of the short aliases
// pending, in-progress and finished. An empty name selects Pendentes.
func ParseTab(name string) (Tab, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pendentes", "pending":
		return TabPending, nil
	case "em andamento", "in-progress", "in_progress":
		return TabInProgress, nil
	case "finalizados", "finished":
		return TabFinished, nil
	}
	return "", errs.NewValueIsInvalidErrorWithCause("tab", fmt.Errorf("unknown tab %q", name))
}

// PendingMode selects the Pendentes rule of the client and host views.
type PendingMode string

const (
	// PendingLegacy shows every order, matching the deployed app.
	PendingLegacy PendingMode = "legacy"
	// PendingStrict shows only active orders that are not stored yet.
	PendingStrict PendingMode = "strict"
)

func ParsePendingMode(s string) (PendingMode, error) {
	switch PendingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PendingLegacy:
		return PendingLegacy, nil
	case PendingStrict:
		return PendingStrict, nil
	}
	return "", errs.NewValueIsInvalidErrorWithCause("pending tab mode", fmt.Errorf("unknown mode %q", s))
}

// Buckets holds one filtered list per tab. Lists keep the input order.
type Buckets map[Tab][]*order.Order

// Classifier partitions orders into tabs for one role. It is pure: the same
// input always yields the same buckets and the input is not modified.
//
// In the carrier view every tab requires the stored flag and every stored
// order lands in exactly one tab. A finished order is never pending, even
// one restored with accepted unset. In the client and host views an order
// may appear in more than one tab.
type Classifier struct {
	pendingMode PendingMode
}

func NewClassifier(pendingMode PendingMode) Classifier {
	if pendingMode == "" {
		pendingMode = PendingLegacy
	}
	return Classifier{pendingMode: pendingMode}
}

// Classify returns the orders of one tab whose name contains query,
// ignoring case. An empty query matches everything.
func (c Classifier) Classify(orders []*order.Order, role participant.Role, tab Tab, query string) []*order.Order {
	match := c.predicate(role, tab)
	needle := strings.ToLower(strings.TrimSpace(query))

	out := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil || !match(o) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(o.Name()), needle) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Partition classifies the orders into all tabs at once.
func (c Classifier) Partition(orders []*order.Order, role participant.Role, query string) Buckets {
	buckets := make(Buckets, len(Tabs))
	for _, tab := range Tabs {
		buckets[tab] = c.Classify(orders, role, tab, query)
	}
	return buckets
}

func (c Classifier) predicate(role participant.Role, tab Tab) func(*order.Order) bool {
	if role == participant.RoleCarrier {
		switch tab {
		case TabPending:
			return func(o *order.Order) bool { return !o.Accepted() && !o.IsFinished() && o.Stored() }
		case TabInProgress:
			return func(o *order.Order) bool { return o.Accepted() && !o.IsFinished() && o.Stored() }
		case TabFinished:
			return func(o *order.Order) bool { return o.IsFinished() && o.Stored() }
		}
		return func(*order.Order) bool { return false }
	}

	switch tab {
	case TabPending:
		if c.pendingMode == PendingStrict {
			return func(o *order.Order) bool { return !o.Stored() && !o.IsFinished() }
		}
		return func(*order.Order) bool { return true }
	case TabInProgress:
		return func(o *order.Order) bool { return !o.IsFinished() }
	case TabFinished:
		return func(o *order.Order) bool { return o.IsFinished() }
	}
	return func(*order.Order) bool { return false }
}
