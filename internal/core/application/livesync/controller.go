// Package livesync keeps the order list of an open client session current.
//
// A Controller subscribes to a ports.SubscriptionSource for its participant,
// keeps the last authoritative snapshot plus an overlay of optimistic
// states, and hands a classified View to its listener after every change.
// A Hub tracks the open controllers per participant so command handlers can
// show a computed transition to every session of every member before it is
// persisted.
package livesync

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrControllerStarted = errors.New("controller already started")
	ErrControllerStopped = errors.New("controller stopped")
)

// View is what a session shows: the orders of the selected tab after the
// search, and the size of every tab under the same search.
type View struct {
	Tab        services.Tab
	Query      string
	Orders     []*order.Order
	Counts     map[services.Tab]int
	FetchedAt  time.Time
	Optimistic bool
}

type overlayEntry struct {
	order     *order.Order
	appliedAt time.Time
}

// Controller is the synchronization state of one session. Its methods are
// safe for concurrent use. The listener is never called concurrently and
// may call View, SetTab, SetQuery and ApplyOptimistic but not Stop. Changes
// made while the listener runs are delivered in one View after it returns.
type Controller struct {
	session    participant.Session
	source     ports.SubscriptionSource
	classifier services.Classifier
	listener   func(View)
	logger     *zap.Logger
	now        func() time.Time

	mu            sync.Mutex
	idle          *sync.Cond
	delivering    bool
	pending       bool
	authoritative []*order.Order
	fetchedAt     time.Time
	overlay       map[string]*overlayEntry
	tab           services.Tab
	query         string
	started       bool
	stopped       bool
	unsubscribe   ports.Unsubscribe
	cancel        context.CancelFunc
	onStop        func()
}

func NewController(
	session participant.Session,
	source ports.SubscriptionSource,
	classifier services.Classifier,
	listener func(View),
	l *zap.Logger,
) *Controller {
	if listener == nil {
		listener = func(View) {}
	}

	c := &Controller{
		session:    session,
		source:     source,
		classifier: classifier,
		listener:   listener,
		logger: logger.Component(l, "livesync_controller").With(
			zap.String("participant_id", session.ParticipantID()),
		),
		now:     time.Now,
		overlay: make(map[string]*overlayEntry),
		tab:     services.TabPending,
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Start subscribes to the participant's orders. The first View follows
// the initial snapshot.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrControllerStopped
	}
	if c.started {
		c.mu.Unlock()
		return ErrControllerStarted
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	unsubscribe, err := c.source.Subscribe(ctx, c.session.ParticipantID(), c.onSnapshot)
	if err != nil {
		c.Stop()
		return err
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		unsubscribe()
		return ErrControllerStopped
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	return nil
}

// Stop cancels the subscription and any fetch it has in flight. No View
// is delivered after Stop returns. Stop is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel, unsubscribe, onStop := c.cancel, c.unsubscribe, c.onStop
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	if onStop != nil {
		onStop()
	}

	c.mu.Lock()
	for c.delivering {
		c.idle.Wait()
	}
	c.mu.Unlock()
	c.logger.Debug("controller stopped")
}

func (c *Controller) SetTab(tab services.Tab) {
	c.mu.Lock()
	c.tab = tab
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	c.query = query
	c.mu.Unlock()
	c.notify()
}

// View returns the current view without notifying the listener.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// ApplyOptimistic shows next in place of the stored order with the same id
// until a snapshot fetched later arrives or rollback is called.
func (c *Controller) ApplyOptimistic(next *order.Order) (rollback func()) {
	key := next.ID().String()
	entry := &overlayEntry{order: next.Clone(), appliedAt: c.now()}

	c.mu.Lock()
	c.overlay[key] = entry
	c.mu.Unlock()
	c.notify()

	return func() {
		c.mu.Lock()
		current, ok := c.overlay[key]
		if ok && current == entry {
			delete(c.overlay, key)
		}
		c.mu.Unlock()
		if ok && current == entry {
			c.notify()
		}
	}
}

func (c *Controller) onSnapshot(s ports.Snapshot) {
	c.mu.Lock()
	if s.FetchedAt.Before(c.fetchedAt) {
		c.mu.Unlock()
		c.logger.Debug("stale snapshot ignored", zap.Time("fetched_at", s.FetchedAt))
		return
	}
	c.authoritative = s.Orders
	c.fetchedAt = s.FetchedAt

	versions := make(map[string]int64, len(s.Orders))
	for _, o := range s.Orders {
		versions[o.ID().String()] = o.Version()
	}
	for key, entry := range c.overlay {
		stored, ok := versions[key]
		if s.FetchedAt.After(entry.appliedAt) || (ok && stored >= entry.order.Version()) {
			delete(c.overlay, key)
		}
	}
	c.mu.Unlock()

	c.notify()
}

// notify delivers the current view. When another call is already
// delivering, it only marks the view dirty and that call delivers again
// once the listener returns.
func (c *Controller) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.pending = true
	if c.delivering {
		return
	}

	c.delivering = true
	for c.pending && !c.stopped {
		c.pending = false
		view := c.viewLocked()

		c.mu.Unlock()
		c.listener(view)
		c.mu.Lock()
	}
	c.delivering = false
	c.idle.Broadcast()
}

func (c *Controller) viewLocked() View {
	merged := make([]*order.Order, 0, len(c.authoritative)+len(c.overlay))
	seen := make(map[string]struct{}, len(c.authoritative))
	for _, o := range c.authoritative {
		key := o.ID().String()
		seen[key] = struct{}{}
		if entry, ok := c.overlay[key]; ok {
			merged = append(merged, entry.order)
			continue
		}
		merged = append(merged, o)
	}
	for _, key := range slices.Sorted(maps.Keys(c.overlay)) {
		if _, ok := seen[key]; !ok {
			merged = append(merged, c.overlay[key].order)
		}
	}

	buckets := c.classifier.Partition(merged, c.session.Role(), c.query)
	counts := make(map[services.Tab]int, len(services.Tabs))
	for _, tab := range services.Tabs {
		counts[tab] = len(buckets[tab])
	}

	return View{
		Tab:        c.tab,
		Query:      c.query,
		Orders:     buckets[c.tab],
		Counts:     counts,
		FetchedAt:  c.fetchedAt,
		Optimistic: len(c.overlay) > 0,
	}
}
