package livesync

import (
	"context"
	"sync"

	"lastmile/internal/core/domain/model/order"
	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"

	"go.uber.org/zap"
)

// Hub opens controllers and indexes them by participant.
type Hub struct {
	source     ports.SubscriptionSource
	classifier services.Classifier
	logger     *zap.Logger

	mu          sync.RWMutex
	controllers map[string]map[*Controller]struct{}
}

func NewHub(source ports.SubscriptionSource, classifier services.Classifier, logger *zap.Logger) *Hub {
	return &Hub{
		source:      source,
		classifier:  classifier,
		logger:      logger,
		controllers: make(map[string]map[*Controller]struct{}),
	}
}

// Open starts a controller for the session on the given tab and search.
// Stopping the controller removes it from the hub.
func (h *Hub) Open(
	ctx context.Context,
	session participant.Session,
	tab services.Tab,
	query string,
	listener func(View),
) (*Controller, error) {
	c := NewController(session, h.source, h.classifier, listener, h.logger)
	participantID := session.ParticipantID()
	c.tab = tab
	c.query = query
	c.onStop = func() { h.unregister(participantID, c) }
	h.register(participantID, c)

	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Sessions reports how many controllers are open for participantID.
func (h *Hub) Sessions(participantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.controllers[participantID])
}

// ApplyOptimistic shows next on every open session of the given
// participants. The returned rollback undoes all of them.
func (h *Hub) ApplyOptimistic(participantIDs []string, next *order.Order) func() {
	h.mu.RLock()
	var targets []*Controller
	for _, participantID := range participantIDs {
		for c := range h.controllers[participantID] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	rollbacks := make([]func(), 0, len(targets))
	for _, c := range targets {
		rollbacks = append(rollbacks, c.ApplyOptimistic(next))
	}

	return func() {
		for _, rollback := range rollbacks {
			rollback()
		}
	}
}

func (h *Hub) register(participantID string, c *Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.controllers[participantID] == nil {
		h.controllers[participantID] = make(map[*Controller]struct{})
	}
	h.controllers[participantID][c] = struct{}{}
}

func (h *Hub) unregister(participantID string, c *Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.controllers[participantID], c)
	if len(h.controllers[participantID]) == 0 {
		delete(h.controllers, participantID)
	}
}
