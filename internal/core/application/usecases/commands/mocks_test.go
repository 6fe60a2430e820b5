package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	clientID  = "teste@gmail.com"
	carrierID = "joao@example.com"
	hostID    = "maria@example.com"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, id kernel.UUID, patch order.Patch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) FetchForParticipant(ctx context.Context, participantID string) ([]*order.Order, error) {
	args := m.Called(ctx, participantID)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockChangeNotifier struct{ mock.Mock }

func (m *MockChangeNotifier) NotifyChanged(ctx context.Context, participantIDs ...string) error {
	args := m.Called(ctx, participantIDs)
	return args.Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, event ports.OrderChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// recordingView remembers optimistic applications and their rollbacks.
type recordingView struct {
	mu         sync.Mutex
	applied    []*order.Order
	rolledBack int
}

func (v *recordingView) ApplyOptimistic(_ []string, next *order.Order) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applied = append(v.applied, next)
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.rolledBack++
	}
}

// memoryUoW is an in-memory order store honoring the version check.
type memoryUoW struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMemoryUoW(orders ...*order.Order) *memoryUoW {
	m := &memoryUoW{orders: map[string]*order.Order{}}
	for _, o := range orders {
		m.orders[o.ID().String()] = o.Clone()
	}
	return m
}

func (m *memoryUoW) Create() commands.OrderUoW              { return m }
func (m *memoryUoW) Begin(context.Context) error            { return nil }
func (m *memoryUoW) Commit(context.Context) error           { return nil }
func (m *memoryUoW) Rollback(context.Context) error         { return nil }
func (m *memoryUoW) OrderRepository() ports.OrderRepository { return m }
func (m *memoryUoW) Add(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID().String()] = o.Clone()
	return nil
}

func (m *memoryUoW) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id.String()]
	if !ok {
		return nil, errs.NewRepositoryError("get order", errs.NewObjectNotFoundError("id", id.String()))
	}
	return o.Clone(), nil
}

func (m *memoryUoW) Update(_ context.Context, id kernel.UUID, patch order.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id.String()]
	if !ok {
		return errs.NewRepositoryError("update order", errs.NewObjectNotFoundError("id", id.String()))
	}
	next := o.Clone()
	if err := next.Apply(patch); err != nil {
		return err
	}
	m.orders[id.String()] = next
	return nil
}

func (m *memoryUoW) FetchForParticipant(_ context.Context, participantID string) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []*order.Order
	for _, o := range m.orders {
		if o.HasParticipant(participantID) {
			orders = append(orders, o.Clone())
		}
	}
	return orders, nil
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 7, 31, 1, 48, 42, 0, time.UTC)
	return func() time.Time {
		at = at.Add(time.Minute)
		return at
	}
}

func testOrder(t *testing.T, participants ...string) *order.Order {
	t.Helper()
	loc, err := kernel.NewLocation(-8.0578, -34.8829)
	require.NoError(t, err)

	o, err := order.NewOrder(kernel.NewUUID(), clientID, order.Attributes{
		Name:     "Amazon #135",
		Weight:   order.WeightLight,
		Location: loc,
	}, order.Secrets{Code: "123", StorageCode: "321"}, participants...)
	require.NoError(t, err)
	return o
}

// storedTestOrder is testOrder after the host's Store, so carriers see it
// as pending.
func storedTestOrder(t *testing.T, participants ...string) *order.Order {
	t.Helper()
	host, err := newSession(t, hostID, participant.RoleHost).Host()
	require.NoError(t, err)
	tr, err := services.NewLifecycleEngine(fixedClock()).Store(host, testOrder(t, participants...))
	require.NoError(t, err)
	return tr.Order
}

func newSession(t *testing.T, id string, role participant.Role) participant.Session {
	t.Helper()
	s, err := participant.NewSession(id, role)
	require.NoError(t, err)
	return s
}
