package services_test

import (
	"encoding/json"
	"testing"
	"time"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clientID  = "teste@gmail.com"
	carrierID = "joao@example.com"
	hostID    = "maria@example.com"
)

func fixedClock() func() time.Time {
	at := time.Date(2024, 7, 31, 1, 48, 42, 0, time.UTC)
	return func() time.Time {
		at = at.Add(time.Minute)
		return at
	}
}

func placedOrder(t *testing.T) *order.Order {
	t.Helper()
	loc, err := kernel.NewLocation(-8.0578, -34.8829)
	require.NoError(t, err)

	o, err := order.NewOrder(kernel.NewUUID(), clientID, order.Attributes{
		Name:     "Amazon #135",
		Weight:   order.WeightLight,
		Location: loc,
	}, order.Secrets{Code: "123", StorageCode: "321"})
	require.NoError(t, err)
	return o
}

func session(t *testing.T, id string, role participant.Role) participant.Session {
	t.Helper()
	s, err := participant.NewSession(id, role)
	require.NoError(t, err)
	return s
}

func carrier(t *testing.T) participant.Carrier {
	t.Helper()
	c, err := session(t, carrierID, participant.RoleCarrier).Carrier()
	require.NoError(t, err)
	return c
}

func host(t *testing.T) participant.Host {
	t.Helper()
	h, err := session(t, hostID, participant.RoleHost).Host()
	require.NoError(t, err)
	return h
}

func requireUserMessage(t *testing.T, err error, msg string) {
	t.Helper()
	var validationErr *errs.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, msg, validationErr.UserMessage)
}

// requireAppendOnly checks that next keeps every entry of prev unchanged
// and adds exactly one.
func requireAppendOnly(t *testing.T, prev, next *order.Order) {
	t.Helper()
	before, err := json.Marshal(prev.Actions().Entries())
	require.NoError(t, err)
	require.Equal(t, prev.Actions().Len()+1, next.Actions().Len())
	after, err := json.Marshal(next.Actions().Entries()[:prev.Actions().Len()])
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func labelsOf(o *order.Order) []string {
	var labels []string
	for _, e := range o.Actions().Entries() {
		labels = append(labels, e.Action)
	}
	return labels
}

func TestLifecycleEngine_HappyPath(t *testing.T) {
	engine := services.NewLifecycleEngine(fixedClock())
	o := placedOrder(t)

	steps := []func(*order.Order) (services.Transition, error){
		func(o *order.Order) (services.Transition, error) { return engine.Store(host(t), o) },
		func(o *order.Order) (services.Transition, error) { return engine.Accept(carrier(t), o) },
		func(o *order.Order) (services.Transition, error) {
			return engine.AuthenticateStorage(carrier(t), o, "321")
		},
		func(o *order.Order) (services.Transition, error) { return engine.ConfirmDelivery(carrier(t), o, "123") },
	}
	for _, step := range steps {
		tr, err := step(o)
		require.NoError(t, err)
		requireAppendOnly(t, o, tr.Order)
		o = tr.Order
	}

	assert.Equal(t, order.Received, o.Status())
	assert.True(t, o.Accepted())
	assert.True(t, o.Stored())
	assert.Equal(t, int64(4), o.Version())
	assert.Equal(t, []string{
		"Pacote armazenado",
		"Esperando retirada do entregador",
		"Saiu para entrega",
		"Pedido entregue",
	}, labelsOf(o))
	assert.Equal(t, services.LabelDelivered, o.Actions().CurrentLabel())
	assert.Equal(t, []string{clientID, hostID, carrierID}, o.Participants())
}

func TestLifecycleEngine_PickupAtKnownStoragePoint(t *testing.T) {
	engine := services.NewLifecycleEngine(fixedClock())
	o := placedOrder(t)

	tr, err := engine.Accept(carrier(t), o)
	require.NoError(t, err)
	o = tr.Order
	assert.True(t, o.Accepted())
	assert.Equal(t, order.Processing, o.Status())
	assert.True(t, o.HasParticipant(carrierID))

	tr, err = engine.Store(host(t), o)
	require.NoError(t, err)
	o = tr.Order
	assert.True(t, o.Stored())
	assert.True(t, o.HasParticipant(hostID))

	tr, err = engine.ConfirmStorage(carrier(t), o, "321")
	require.NoError(t, err)
	assert.Equal(t, services.OpConfirmStorage, tr.Operation)
	o = tr.Order
	assert.Equal(t, order.Sent, o.Status())

	tr, err = engine.ConfirmDelivery(carrier(t), o, "123")
	require.NoError(t, err)
	o = tr.Order
	assert.Equal(t, order.Received, o.Status())
	assert.Equal(t, []string{
		services.LabelAccepted,
		services.LabelStored,
		services.LabelDispatched,
		services.LabelDelivered,
	}, labelsOf(o))
}

func TestLifecycleEngine_PatchMatchesNextState(t *testing.T) {
	engine := services.NewLifecycleEngine(fixedClock())
	o := placedOrder(t)

	tr, err := engine.Accept(carrier(t), o)
	require.NoError(t, err)

	assert.Equal(t, int64(0), tr.Patch.ExpectedVersion)
	require.NotNil(t, tr.Patch.Action)
	assert.Equal(t, tr.Action, *tr.Patch.Action)
	assert.NotEmpty(t, tr.Action.Key)

	replayed := o.Clone()
	require.NoError(t, replayed.Apply(tr.Patch))
	assert.Equal(t, tr.Order.Actions().Entries(), replayed.Actions().Entries())
	assert.Equal(t, tr.Order.Participants(), replayed.Participants())
}

func TestLifecycleEngine_Reject(t *testing.T) {
	engine := services.NewLifecycleEngine(fixedClock())

	stored := func(t *testing.T) *order.Order {
		tr, err := engine.Store(host(t), placedOrder(t))
		require.NoError(t, err)
		return tr.Order
	}

	t.Run("cancels a pending order", func(t *testing.T) {
		o := stored(t)
		tr, err := engine.Reject(carrier(t), o)

		require.NoError(t, err)
		assert.Equal(t, order.Canceled, tr.Order.Status())
		assert.True(t, tr.Order.Accepted())
		assert.Equal(t, services.LabelRejected, tr.Order.Actions().CurrentLabel())
		requireAppendOnly(t, o, tr.Order)
	})

	t.Run("is refused before the order is stored", func(t *testing.T) {
		o := placedOrder(t)

		_, err := engine.Reject(carrier(t), o)

		requireUserMessage(t, err, services.MsgTransitionNotAllowed)
		assert.Equal(t, order.Processing, o.Status())
		assert.False(t, o.Accepted())
		assert.Equal(t, 0, o.Actions().Len())
	})

	t.Run("is refused after accept", func(t *testing.T) {
		tr, err := engine.Accept(carrier(t), stored(t))
		require.NoError(t, err)

		_, err = engine.Reject(carrier(t), tr.Order)

		requireUserMessage(t, err, services.MsgTransitionNotAllowed)
		assert.Equal(t, order.Processing, tr.Order.Status())
	})
}

func TestLifecycleEngine_Codes(t *testing.T) {
	engine := services.NewLifecycleEngine(fixedClock())

	accepted := func(t *testing.T) *order.Order {
		tr, err := engine.Accept(carrier(t), placedOrder(t))
		require.NoError(t, err)
		return tr.Order
	}

	t.Run("wrong storage code leaves order unchanged", func(t *testing.T) {
		o := accepted(t)

		_, err := engine.AuthenticateStorage(carrier(t), o, "999")

		requireUserMessage(t, err, services.MsgInvalidCode)
		assert.Equal(t, order.Processing, o.Status())
		assert.Equal(t, 1, o.Actions().Len())
		assert.Equal(t, int64(1), o.Version())
	})

	t.Run("delivery code does not open storage", func(t *testing.T) {
		_, err := engine.AuthenticateStorage(carrier(t), accepted(t), "123")
		requireUserMessage(t, err, services.MsgInvalidCode)
	})

	t.Run("empty code is refused", func(t *testing.T) {
		_, err := engine.AuthenticateStorage(carrier(t), accepted(t), "")
		requireUserMessage(t, err, services.MsgCodeRequired)
	})

	t.Run("authenticate storage does not need stored flag", func(t *testing.T) {
		tr, err := engine.AuthenticateStorage(carrier(t), accepted(t), "321")

		require.NoError(t, err)
		assert.Equal(t, order.Sent, tr.Order.Status())
		assert.True(t, tr.Order.Stored())
	})

	t.Run("confirm storage needs stored flag", func(t *testing.T) {
		_, err := engine.ConfirmStorage(carrier(t), accepted(t), "321")
		requireUserMessage(t, err, services.MsgTransitionNotAllowed)
	})

	t.Run("wrong delivery code keeps order sent", func(t *testing.T) {
		tr, err := engine.AuthenticateStorage(carrier(t), accepted(t), "321")
		require.NoError(t, err)

		_, err = engine.ConfirmDelivery(carrier(t), tr.Order, "321")

		requireUserMessage(t, err, services.MsgInvalidCode)
		assert.Equal(t, order.Sent, tr.Order.Status())
	})

	t.Run("delivery before dispatch is refused", func(t *testing.T) {
		_, err := engine.ConfirmDelivery(carrier(t), accepted(t), "123")
		requireUserMessage(t, err, services.MsgTransitionNotAllowed)
	})

	t.Run("only the assigned carrier moves the order", func(t *testing.T) {
		other, err := session(t, "ana@example.com", participant.RoleCarrier).Carrier()
		require.NoError(t, err)
		o := accepted(t)

		_, err = engine.AuthenticateStorage(other, o, "321")
		requireUserMessage(t, err, services.MsgTransitionNotAllowed)

		tr, err := engine.AuthenticateStorage(carrier(t), o, "321")
		require.NoError(t, err)

		_, err = engine.ConfirmDelivery(other, tr.Order, "123")
		requireUserMessage(t, err, services.MsgTransitionNotAllowed)
		assert.Equal(t, order.Sent, tr.Order.Status())
	})
}

// everyOperation runs all six operations against o with the right codes.
func everyOperation(t *testing.T, engine services.LifecycleEngine, o *order.Order) []error {
	var out []error
	for _, op := range []func() (services.Transition, error){
		func() (services.Transition, error) { return engine.Accept(carrier(t), o) },
		func() (services.Transition, error) { return engine.Reject(carrier(t), o) },
		func() (services.Transition, error) { return engine.Store(host(t), o) },
		func() (services.Transition, error) { return engine.ConfirmStorage(carrier(t), o, "321") },
		func() (services.Transition, error) { return engine.AuthenticateStorage(carrier(t), o, "321") },
		func() (services.Transition, error) { return engine.ConfirmDelivery(carrier(t), o, "123") },
	} {
		_, err := op()
		out = append(out, err)
	}
	return out
}

func TestLifecycleEngine_TerminalAndReplay(t *testing.T) {
	engine := services.NewLifecycleEngine(fixedClock())

	t.Run("canceled absorbs every operation", func(t *testing.T) {
		stored, err := engine.Store(host(t), placedOrder(t))
		require.NoError(t, err)
		rejected, err := engine.Reject(carrier(t), stored.Order)
		require.NoError(t, err)
		o := rejected.Order
		entries := labelsOf(o)

		for _, err := range everyOperation(t, engine, o) {
			requireUserMessage(t, err, services.MsgTransitionNotAllowed)
		}
		assert.Equal(t, order.Canceled, o.Status())
		assert.Equal(t, entries, labelsOf(o))
	})

	t.Run("received absorbs every operation", func(t *testing.T) {
		o := placedOrder(t)
		for _, step := range []func(*order.Order) (services.Transition, error){
			func(o *order.Order) (services.Transition, error) { return engine.Store(host(t), o) },
			func(o *order.Order) (services.Transition, error) { return engine.Accept(carrier(t), o) },
			func(o *order.Order) (services.Transition, error) {
				return engine.AuthenticateStorage(carrier(t), o, "321")
			},
			func(o *order.Order) (services.Transition, error) { return engine.ConfirmDelivery(carrier(t), o, "123") },
		} {
			tr, err := step(o)
			require.NoError(t, err)
			o = tr.Order
		}
		require.Equal(t, order.Received, o.Status())
		version := o.Version()

		for _, err := range everyOperation(t, engine, o) {
			requireUserMessage(t, err, services.MsgTransitionNotAllowed)
		}
		assert.Equal(t, order.Received, o.Status())
		assert.Equal(t, 4, o.Actions().Len())
		assert.Equal(t, version, o.Version())
	})

	t.Run("accept replay appends nothing", func(t *testing.T) {
		tr, err := engine.Accept(carrier(t), placedOrder(t))
		require.NoError(t, err)

		_, err = engine.Accept(carrier(t), tr.Order)

		requireUserMessage(t, err, services.MsgTransitionNotAllowed)
		assert.Equal(t, 1, tr.Order.Actions().Len())
	})

	t.Run("store replay appends nothing", func(t *testing.T) {
		tr, err := engine.Store(host(t), placedOrder(t))
		require.NoError(t, err)

		_, err = engine.Store(host(t), tr.Order)

		requireUserMessage(t, err, services.MsgTransitionNotAllowed)
	})
}

func TestLifecycleEngine_Execute(t *testing.T) {
	engine := services.NewLifecycleEngine(fixedClock())

	t.Run("dispatches by operation", func(t *testing.T) {
		tr, err := engine.Execute(session(t, carrierID, participant.RoleCarrier), services.OpAccept, placedOrder(t), "")

		require.NoError(t, err)
		assert.Equal(t, services.OpAccept, tr.Operation)
	})

	t.Run("client cannot accept", func(t *testing.T) {
		_, err := engine.Execute(session(t, clientID, participant.RoleClient), services.OpAccept, placedOrder(t), "")
		requireUserMessage(t, err, participant.MsgRoleNotAllowed)
	})

	t.Run("carrier cannot store", func(t *testing.T) {
		_, err := engine.Execute(session(t, carrierID, participant.RoleCarrier), services.OpStore, placedOrder(t), "")
		requireUserMessage(t, err, participant.MsgRoleNotAllowed)
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := engine.Execute(session(t, carrierID, participant.RoleCarrier), services.OpUnknown, placedOrder(t), "")
		require.ErrorIs(t, err, services.ErrUnknownOperation)
	})
}

func TestParseOperation(t *testing.T) {
	for _, name := range []string{"accept", "reject", "store", "confirm-storage", "authenticate-storage", "confirm-delivery"} {
		op, err := services.ParseOperation(name)
		require.NoError(t, err)
		assert.Equal(t, name, op.String())
	}

	_, err := services.ParseOperation("teleport")
	require.ErrorIs(t, err, services.ErrUnknownOperation)

	assert.True(t, services.OpConfirmDelivery.RequiresProof())
	assert.False(t, services.OpAccept.RequiresProof())
}
