package queries

import (
	"context"

	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
)

// GetParticipantOrdersQueryHandler reads the participant's orders through
// the membership filter and classifies them for the session role.
type GetParticipantOrdersQueryHandler struct {
	fetcher    ports.OrderFetcher
	classifier services.Classifier
}

func NewGetParticipantOrdersQueryHandler(
	fetcher ports.OrderFetcher,
	classifier services.Classifier,
) GetParticipantOrdersQueryHandler {
	return GetParticipantOrdersQueryHandler{
		fetcher:    fetcher,
		classifier: classifier,
	}
}

func (h GetParticipantOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetParticipantOrdersQuery,
) (GetParticipantOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetParticipantOrdersQueryResponse{}, err
	}

	session := query.Session()
	orders, err := h.fetcher.FetchForParticipant(ctx, session.ParticipantID())
	if err != nil {
		return GetParticipantOrdersQueryResponse{}, err
	}

	buckets := h.classifier.Partition(orders, session.Role(), query.Text())

	counts := make(map[services.Tab]int, len(services.Tabs))
	for _, tab := range services.Tabs {
		counts[tab] = len(buckets[tab])
	}

	return GetParticipantOrdersQueryResponse{
		Tab:    query.Tab(),
		Orders: NewOrderSummaries(buckets[query.Tab()]),
		Counts: counts,
	}, nil
}
