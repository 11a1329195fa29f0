package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"SocialPoster/internal/ports"
)

// Store keeps used-content fingerprints in a Redis set with a retention
// window. Reads fail open: if Redis is unreachable the pipeline proceeds as
// if nothing had been used, accepting a possible duplicate post over a
// blocked pipeline. Writes are best-effort and never surface errors.
type Store struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.FingerprintStore = (*Store)(nil)

// NewStore wires a Redis client to one fingerprint set, e.g. key
// "used_headlines" with a 7-day window.
func NewStore(rdb *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{rdb: rdb, key: key, ttl: ttl, logger: logger}
}

// Contains reports whether the fingerprint was already used.
func (s *Store) Contains(ctx context.Context, fingerprint string) bool {
	if s.rdb == nil || fingerprint == "" {
		return false
	}

	used, err := s.rdb.SIsMember(ctx, s.key, fingerprint).Result()
	if err != nil {
		s.warn("dedup read failed, treating as unused", "key", s.key, "error", err)
		return false
	}
	return used
}

// AddAll merges fingerprints into the set and refreshes its expiry. SADD is
// a set union on the backing store, so concurrent invocations cannot lose
// each other's entries and re-adding is a no-op.
func (s *Store) AddAll(ctx context.Context, fingerprints []string) {
	if s.rdb == nil || len(fingerprints) == 0 {
		return
	}

	members := make([]interface{}, 0, len(fingerprints))
	for _, fp := range fingerprints {
		if fp == "" {
			continue
		}
		members = append(members, fp)
	}
	if len(members) == 0 {
		return
	}

	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, s.key, members...)
	pipe.Expire(ctx, s.key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.warn("dedup write failed, fingerprints not recorded", "key", s.key, "count", len(members), "error", err)
	}
}

func (s *Store) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
