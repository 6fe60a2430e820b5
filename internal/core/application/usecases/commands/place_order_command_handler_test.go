package commands_test

import (
	"errors"
	"testing"
	"time"

	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var placedAt = time.Date(2024, 7, 31, 1, 48, 42, 0, time.UTC)

func placeCommand(t *testing.T, role participant.Role) commands.PlaceOrderCommand {
	t.Helper()
	loc, err := kernel.NewLocation(-8.0578, -34.8829)
	require.NoError(t, err)

	cmd, err := commands.NewPlaceOrderCommand(newSession(t, clientID, role), order.Attributes{
		Name:     "Amazon #135",
		Address:  "Rua Nova, Numero 58",
		Weight:   order.WeightMedium,
		Location: loc,
	}, order.Secrets{Code: "123", StorageCode: "321"}, hostID)
	require.NoError(t, err)
	return cmd
}

func placeHandler(
	factory commands.OrderUoWFactory,
	notifier ports.ChangeNotifier,
	publisher ports.OrderChangePublisher,
) commands.PlaceOrderCommandHandler {
	return commands.NewPlaceOrderCommandHandler(
		factory,
		commands.NewChangeAnnouncer(notifier, publisher, nil, zap.NewNop()),
		func() time.Time { return placedAt },
	)
}

func TestPlaceOrderCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Add", ctx, mock.AnythingOfType("*order.Order")).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()

	notifier := new(MockChangeNotifier)
	notifier.On("NotifyChanged", ctx, []string{clientID, hostID}).Return(nil).Once()
	publisher := new(MockPublisher)
	publisher.On("Publish", ctx, mock.MatchedBy(func(e ports.OrderChangedEvent) bool {
		return e.Status == order.Processing.String() &&
			!e.Accepted && !e.Stored &&
			e.Action == order.NoActionLabel &&
			e.OccurredAt.Equal(placedAt)
	})).Return(nil).Once()

	placed, err := placeHandler(factory, notifier, publisher).Handle(ctx, placeCommand(t, participant.RoleClient))
	require.NoError(t, err)

	assert.Equal(t, clientID, placed.Owner())
	assert.Equal(t, []string{clientID, hostID}, placed.Participants())
	assert.Equal(t, order.Processing, placed.Status())
	assert.Equal(t, placedAt, placed.Attributes().CreatedAt)
	assert.Equal(t, 0, placed.Actions().Len())

	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	factory.AssertExpectations(t)
	notifier.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestPlaceOrderCommandHandler_Handle_OnlyClientsPlaceOrders(t *testing.T) {
	factory := new(MockOrderUoWFactory)

	_, err := placeHandler(factory, nil, nil).Handle(t.Context(), placeCommand(t, participant.RoleCarrier))

	var validationErr *errs.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, participant.MsgRoleNotAllowed, validationErr.UserMessage)
	factory.AssertNotCalled(t, "Create")
}

func TestPlaceOrderCommandHandler_Handle_InvalidAttributes(t *testing.T) {
	cmd, err := commands.NewPlaceOrderCommand(
		newSession(t, clientID, participant.RoleClient),
		order.Attributes{Weight: order.WeightLight},
		order.Secrets{Code: "123", StorageCode: "321"},
	)
	require.NoError(t, err)
	factory := new(MockOrderUoWFactory)

	_, err = placeHandler(factory, nil, nil).Handle(t.Context(), cmd)

	require.ErrorIs(t, err, errs.ErrValueIsRequired)
	factory.AssertNotCalled(t, "Create")
}

func TestPlaceOrderCommandHandler_Handle_ValidationError(t *testing.T) {
	factory := new(MockOrderUoWFactory)

	_, err := placeHandler(factory, nil, nil).Handle(t.Context(), commands.PlaceOrderCommand{})

	require.ErrorIs(t, err, commands.ErrPlaceOrderCommandIsNotConstructed)
}

func TestPlaceOrderCommandHandler_Handle_BeginError(t *testing.T) {
	ctx := t.Context()

	uow := new(MockOrderUoW)
	factory := new(MockOrderUoWFactory)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(errors.New("begin error")).Once(),
	)

	_, err := placeHandler(factory, nil, nil).Handle(ctx, placeCommand(t, participant.RoleClient))
	require.Error(t, err)
	uow.AssertExpectations(t)
}

func TestPlaceOrderCommandHandler_Handle_AddError(t *testing.T) {
	ctx := t.Context()

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Add", ctx, mock.AnythingOfType("*order.Order")).Return(errors.New("add error")).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	notifier := new(MockChangeNotifier)

	_, err := placeHandler(factory, notifier, nil).Handle(ctx, placeCommand(t, participant.RoleClient))
	require.Error(t, err)
	notifier.AssertNotCalled(t, "NotifyChanged", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestPlaceOrderCommandHandler_Handle_CommitError(t *testing.T) {
	ctx := t.Context()

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Add", ctx, mock.AnythingOfType("*order.Order")).Return(nil).Once(),
		uow.On("Commit", ctx).Return(errors.New("commit error")).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()

	_, err := placeHandler(factory, nil, nil).Handle(ctx, placeCommand(t, participant.RoleClient))
	require.Error(t, err)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	factory.AssertExpectations(t)
}
