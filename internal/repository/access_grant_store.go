package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AccessGrantStore tracks revoked access grants per (school, staff) pair.
// Tokens are issued by the identity service, so the default state is active;
// offboarding plants a revocation marker that outlives any token still in
// flight, regardless of whether the record was deleted or only unlinked.
type AccessGrantStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAccessGrantStore constructs an AccessGrantStore. ttl should cover the
// longest token lifetime; markers expire once no token signed before the
// revocation can still be valid.
func NewAccessGrantStore(client *redis.Client, ttl time.Duration) *AccessGrantStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AccessGrantStore{client: client, ttl: ttl}
}

func revocationKey(schoolID int64, staffID string) string {
	return fmt.Sprintf("grant:revoked:%d:%s", schoolID, staffID)
}

// Revoke marks the grant for one (school, staff) pair as revoked. Revocation
// is idempotent.
func (s *AccessGrantStore) Revoke(ctx context.Context, schoolID int64, staffID string) error {
	if err := s.client.Set(ctx, revocationKey(schoolID, staffID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("revoke access grant: %w", err)
	}
	return nil
}

// Reinstate clears a revocation marker, restoring access for the pair.
func (s *AccessGrantStore) Reinstate(ctx context.Context, schoolID int64, staffID string) error {
	if err := s.client.Del(ctx, revocationKey(schoolID, staffID)).Err(); err != nil {
		return fmt.Errorf("reinstate access grant: %w", err)
	}
	return nil
}

// Active reports whether the staff member still holds a grant for the school.
func (s *AccessGrantStore) Active(ctx context.Context, schoolID int64, staffID string) (bool, error) {
	count, err := s.client.Exists(ctx, revocationKey(schoolID, staffID)).Result()
	if err != nil {
		return false, fmt.Errorf("check access grant: %w", err)
	}
	return count == 0, nil
}
