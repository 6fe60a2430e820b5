package order

import (
	"sort"
	"strconv"
	"time"

	"lastmile/internal/pkg/errs"
)

// NoActionLabel is shown as the current action of an order with an empty log.
const NoActionLabel = "Nenhuma ação disponível"

var ErrActionIsRequired = errs.NewValueIsRequiredError("action")

// DeliveryAction is one audit-log entry. Key is the timestamp key the entry
// is stored under in the delivery_actions document map.
type DeliveryAction struct {
	Key                string
	Action             string
	Timestamp          time.Time
	NotificationAction string
}

// NewDeliveryAction builds an entry stamped at the given time. The key is
// assigned when the entry is appended to a log.
func NewDeliveryAction(action, notificationAction string, at time.Time) (DeliveryAction, error) {
	if action == "" {
		return DeliveryAction{}, ErrActionIsRequired
	}

	return DeliveryAction{
		Action:             action,
		Timestamp:          at.UTC(),
		NotificationAction: notificationAction,
	}, nil
}

// DeliveryActions is the audit log ordered by timestamp, oldest first.
// It is a value: Append returns a new log and never touches existing entries.
type DeliveryActions struct {
	entries []DeliveryAction
}

// RestoreDeliveryActions rebuilds the log from stored entries in any order.
// Entries without a key get their timestamp key.
func RestoreDeliveryActions(entries []DeliveryAction) DeliveryActions {
	sorted := make([]DeliveryAction, len(entries))
	copy(sorted, entries)

	for i := range sorted {
		if sorted[i].Key == "" {
			sorted[i].Key = timestampKey(sorted[i].Timestamp)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Key < sorted[j].Key
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return DeliveryActions{entries: sorted}
}

// Append returns a new log with the action added under a key unique in the log.
func (d DeliveryActions) Append(action DeliveryAction) DeliveryActions {
	action.Key = d.nextKey(action.Timestamp)

	entries := make([]DeliveryAction, len(d.entries), len(d.entries)+1)
	copy(entries, d.entries)

	return RestoreDeliveryActions(append(entries, action))
}

func (d DeliveryActions) Len() int {
	return len(d.entries)
}

// Entries returns a copy of the log, oldest first.
func (d DeliveryActions) Entries() []DeliveryAction {
	out := make([]DeliveryAction, len(d.entries))
	copy(out, d.entries)
	return out
}

// Last returns the entry with the latest timestamp.
func (d DeliveryActions) Last() (DeliveryAction, bool) {
	if len(d.entries) == 0 {
		return DeliveryAction{}, false
	}
	return d.entries[len(d.entries)-1], true
}

// CurrentLabel is the label shown to users as the order's current action.
func (d DeliveryActions) CurrentLabel() string {
	if last, ok := d.Last(); ok {
		return last.Action
	}
	return NoActionLabel
}

// KeyFor returns the key an entry stamped at the given time would get if
// appended now.
func (d DeliveryActions) KeyFor(at time.Time) string {
	return d.nextKey(at.UTC())
}

func (d DeliveryActions) has(key string) bool {
	for _, e := range d.entries {
		if e.Key == key {
			return true
		}
	}
	return false
}

func (d DeliveryActions) nextKey(at time.Time) string {
	key := timestampKey(at)
	for n := 1; d.has(key); n++ {
		key = timestampKey(at) + "-" + strconv.Itoa(n)
	}
	return key
}

func timestampKey(at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 10)
}
