package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lastmile/internal/core/domain/model/participant"

	goredis "github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

type cachedProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// SessionCache stores resolved participant profiles with a TTL.
type SessionCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewSessionCache(client goredis.UniversalClient, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

// Get reports false for a missing or expired entry.
func (c *SessionCache) Get(ctx context.Context, participantID string) (participant.Profile, bool, error) {
	raw, err := c.client.Get(ctx, sessionKeyPrefix+participantID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return participant.Profile{}, false, nil
	}
	if err != nil {
		return participant.Profile{}, false, fmt.Errorf("failed to get session %s: %w", participantID, err)
	}

	var cached cachedProfile
	if err = json.Unmarshal(raw, &cached); err != nil {
		return participant.Profile{}, false, fmt.Errorf("failed to decode session %s: %w", participantID, err)
	}

	role, err := participant.ParseRole(cached.Role)
	if err != nil {
		return participant.Profile{}, false, err
	}

	return participant.Profile{ID: cached.ID, Name: cached.Name, Role: role}, true, nil
}

func (c *SessionCache) Set(ctx context.Context, profile participant.Profile) error {
	raw, err := json.Marshal(cachedProfile{ID: profile.ID, Name: profile.Name, Role: profile.Role.String()})
	if err != nil {
		return err
	}

	if err = c.client.Set(ctx, sessionKeyPrefix+profile.ID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session %s: %w", profile.ID, err)
	}
	return nil
}
