package ports

import (
	"context"

	"lastmile/internal/core/domain/model/participant"
)

// ProfileRepository reads participant profiles from the identity store.
type ProfileRepository interface {
	Get(ctx context.Context, participantID string) (participant.Profile, error)
	Add(ctx context.Context, profile participant.Profile) error
}

// SessionCache keeps resolved profiles so that the role of a participant is
// read from the identity store once per TTL and not on every request.
type SessionCache interface {
	// Get reports false when the participant is not cached.
	Get(ctx context.Context, participantID string) (participant.Profile, bool, error)
	Set(ctx context.Context, profile participant.Profile) error
}
