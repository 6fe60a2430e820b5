package livesync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lastmile/internal/core/application/livesync"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	clientID  = "teste@gmail.com"
	carrierID = "joao@example.com"
	hostID    = "maria@example.com"
)

var t0 = time.Date(2024, 7, 31, 1, 0, 0, 0, time.UTC)

// manualSource delivers snapshots only when the test pushes them.
type manualSource struct {
	mu            sync.Mutex
	onChange      func(ports.Snapshot)
	ctx           context.Context
	subscribeErr  error
	unsubscribed  bool
	participantID string
}

func (s *manualSource) Subscribe(ctx context.Context, participantID string, onChange func(ports.Snapshot)) (ports.Unsubscribe, error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange, s.ctx, s.participantID = onChange, ctx, participantID
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unsubscribed = true
	}, nil
}

func (s *manualSource) push(orders []*order.Order, fetchedAt time.Time) {
	s.mu.Lock()
	onChange, done := s.onChange, s.unsubscribed
	s.mu.Unlock()
	if !done {
		onChange(ports.Snapshot{Orders: orders, FetchedAt: fetchedAt})
	}
}

type viewRecorder struct {
	mu    sync.Mutex
	views []livesync.View
}

func (r *viewRecorder) listen(v livesync.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *viewRecorder) last(t *testing.T) livesync.View {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.views)
	return r.views[len(r.views)-1]
}

func (r *viewRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func newSession(t *testing.T, id string, role participant.Role) participant.Session {
	t.Helper()
	s, err := participant.NewSession(id, role)
	require.NoError(t, err)
	return s
}

func newOrder(t *testing.T, name string) *order.Order {
	t.Helper()
	loc, err := kernel.NewLocation(-8.0578, -34.8829)
	require.NoError(t, err)
	o, err := order.NewOrder(kernel.NewUUID(), clientID, order.Attributes{
		Name:     name,
		Weight:   order.WeightLight,
		Location: loc,
	}, order.Secrets{Code: "123", StorageCode: "321"}, carrierID)
	require.NoError(t, err)
	return o
}

// rejected stores o at a host and has the carrier reject it.
func rejected(t *testing.T, o *order.Order) *order.Order {
	t.Helper()
	engine := services.NewLifecycleEngine(nil)
	host, err := newSession(t, hostID, participant.RoleHost).Host()
	require.NoError(t, err)
	carrier, err := newSession(t, carrierID, participant.RoleCarrier).Carrier()
	require.NoError(t, err)

	stored, err := engine.Store(host, o)
	require.NoError(t, err)
	tr, err := engine.Reject(carrier, stored.Order)
	require.NoError(t, err)
	return tr.Order
}

func names(orders []*order.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Name())
	}
	return out
}

func startController(t *testing.T, source *manualSource, rec *viewRecorder) *livesync.Controller {
	t.Helper()
	c := livesync.NewController(
		newSession(t, clientID, participant.RoleClient),
		source,
		services.NewClassifier(services.PendingLegacy),
		rec.listen,
		zap.NewNop(),
	)
	require.NoError(t, c.Start(t.Context()))
	t.Cleanup(c.Stop)
	return c
}

func TestController_ClassifiesSnapshots(t *testing.T) {
	source := &manualSource{}
	rec := &viewRecorder{}
	c := startController(t, source, rec)

	first := newOrder(t, "Amazon #135")
	second := newOrder(t, "Shopee #7")
	source.push([]*order.Order{first, rejected(t, second)}, t0)

	view := rec.last(t)
	assert.Equal(t, services.TabPending, view.Tab)
	assert.Equal(t, []string{"Amazon #135", "Shopee #7"}, names(view.Orders))
	assert.Equal(t, 1, view.Counts[services.TabInProgress])
	assert.Equal(t, 1, view.Counts[services.TabFinished])

	c.SetTab(services.TabFinished)
	assert.Equal(t, []string{"Shopee #7"}, names(rec.last(t).Orders))

	c.SetQuery("amazon")
	assert.Empty(t, rec.last(t).Orders)
	assert.Equal(t, "amazon", c.View().Query)
}

func TestController_ListenerMayChangeTabAndQuery(t *testing.T) {
	source := &manualSource{}
	rec := &viewRecorder{}

	var c *livesync.Controller
	var once sync.Once
	listener := func(v livesync.View) {
		rec.listen(v)
		once.Do(func() {
			c.SetTab(services.TabFinished)
			c.SetQuery("shopee")
			_ = c.View()
		})
	}
	c = livesync.NewController(
		newSession(t, clientID, participant.RoleClient),
		source,
		services.NewClassifier(services.PendingLegacy),
		listener,
		zap.NewNop(),
	)
	require.NoError(t, c.Start(t.Context()))

	orders := []*order.Order{
		rejected(t, newOrder(t, "Amazon #135")),
		rejected(t, newOrder(t, "Shopee #7")),
	}
	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		source.push(orders, t0)
	}()
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("listener changing the tab blocked the delivery")
	}

	assert.Equal(t, 2, rec.count(), "changes made inside the listener arrive in one view")
	view := rec.last(t)
	assert.Equal(t, services.TabFinished, view.Tab)
	assert.Equal(t, "shopee", view.Query)
	assert.Equal(t, []string{"Shopee #7"}, names(view.Orders))

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		c.Stop()
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after the listener changed the tab")
	}
}

func TestController_IgnoresStaleSnapshots(t *testing.T) {
	source := &manualSource{}
	rec := &viewRecorder{}
	startController(t, source, rec)

	source.push([]*order.Order{newOrder(t, "Amazon #135"), newOrder(t, "Shopee #7")}, t0.Add(time.Second))
	views := rec.count()

	source.push([]*order.Order{newOrder(t, "Antigo")}, t0)

	assert.Equal(t, views, rec.count())
	assert.Equal(t, []string{"Amazon #135", "Shopee #7"}, names(rec.last(t).Orders))
}

func TestController_OptimisticOverlay(t *testing.T) {
	source := &manualSource{}
	rec := &viewRecorder{}
	c := startController(t, source, rec)

	o := newOrder(t, "Amazon #135")
	source.push([]*order.Order{o}, t0)

	rollback := c.ApplyOptimistic(rejected(t, o))
	view := rec.last(t)
	assert.True(t, view.Optimistic)
	assert.Equal(t, 1, view.Counts[services.TabFinished])

	rollback()
	view = rec.last(t)
	assert.False(t, view.Optimistic)
	assert.Equal(t, 0, view.Counts[services.TabFinished])
}

func TestController_FresherSnapshotDiscardsOverlay(t *testing.T) {
	source := &manualSource{}
	rec := &viewRecorder{}
	c := startController(t, source, rec)

	o := newOrder(t, "Amazon #135")
	source.push([]*order.Order{o}, t0)

	rollback := c.ApplyOptimistic(rejected(t, o))
	require.True(t, rec.last(t).Optimistic)

	source.push([]*order.Order{o}, time.Now().Add(time.Second))

	view := rec.last(t)
	assert.False(t, view.Optimistic)
	assert.Equal(t, 0, view.Counts[services.TabFinished])

	views := rec.count()
	rollback()
	assert.Equal(t, views, rec.count(), "rollback of a discarded overlay changes nothing")
}

func TestController_SnapshotWithNewerVersionDiscardsOverlay(t *testing.T) {
	source := &manualSource{}
	rec := &viewRecorder{}
	c := startController(t, source, rec)

	o := newOrder(t, "Amazon #135")
	source.push([]*order.Order{o}, t0)

	next := rejected(t, o)
	c.ApplyOptimistic(next)

	// Fetched before the overlay, but already carries the committed state.
	source.push([]*order.Order{next}, t0.Add(time.Millisecond))

	view := rec.last(t)
	assert.False(t, view.Optimistic)
	assert.Equal(t, 1, view.Counts[services.TabFinished])
}

func TestController_StopCancelsSubscription(t *testing.T) {
	source := &manualSource{}
	rec := &viewRecorder{}
	c := startController(t, source, rec)

	source.push(nil, t0)
	views := rec.count()

	c.Stop()
	c.Stop()

	assert.Error(t, source.ctx.Err(), "pending repository calls are canceled")
	assert.True(t, source.unsubscribed)

	c.SetTab(services.TabFinished)
	assert.Equal(t, views, rec.count(), "no view after stop")
	require.ErrorIs(t, c.Start(t.Context()), livesync.ErrControllerStopped)
}

func TestController_StartTwice(t *testing.T) {
	c := startController(t, &manualSource{}, &viewRecorder{})
	require.ErrorIs(t, c.Start(t.Context()), livesync.ErrControllerStarted)
}

func TestController_SubscribeError(t *testing.T) {
	source := &manualSource{subscribeErr: errors.New("redis down")}
	c := livesync.NewController(
		newSession(t, clientID, participant.RoleClient),
		source,
		services.NewClassifier(services.PendingLegacy),
		nil,
		zap.NewNop(),
	)

	require.Error(t, c.Start(t.Context()))
}

func TestHub_AppliesOptimisticStateToMemberSessions(t *testing.T) {
	clientSource := &manualSource{}
	hub := livesync.NewHub(clientSource, services.NewClassifier(services.PendingLegacy), zap.NewNop())

	rec := &viewRecorder{}
	c, err := hub.Open(t.Context(), newSession(t, clientID, participant.RoleClient), services.TabFinished, "", rec.listen)
	require.NoError(t, err)
	assert.Equal(t, clientID, clientSource.participantID)
	assert.Equal(t, 1, hub.Sessions(clientID))

	o := newOrder(t, "Amazon #135")
	clientSource.push([]*order.Order{o}, t0)
	assert.Empty(t, rec.last(t).Orders)

	rollback := hub.ApplyOptimistic([]string{clientID, carrierID}, rejected(t, o))
	assert.Equal(t, []string{"Amazon #135"}, names(rec.last(t).Orders))

	rollback()
	assert.Empty(t, rec.last(t).Orders)

	c.Stop()
	assert.Equal(t, 0, hub.Sessions(clientID))

	views := rec.count()
	hub.ApplyOptimistic([]string{clientID}, o)()
	assert.Equal(t, views, rec.count())
}
