// Package redis holds the Redis adapters: the push subscription source, the
// change notifier feeding it and the session cache.
package redis

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// ChannelPrefix prefixes the per-participant change channel.
const ChannelPrefix = "orders:participant:"

// Channel returns the change channel of a participant.
func Channel(participantID string) string {
	return ChannelPrefix + participantID
}

// NewClient creates a client from a URL in the format
// redis://[:password@]host[:port][/database].
func NewClient(redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return goredis.NewClient(opts), nil
}
