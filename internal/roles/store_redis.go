package roles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "datapass/pkg/domain"
)

// Redis key layout: one set of member UUIDs per (role, object) pair.
const roleKeyPrefix = "roles:"

func roleKey(role, object string) string {
	return roleKeyPrefix + role + ":" + object
}

// RedisStore is a Redis-backed role store for deployments where multiple
// instances share grant state. SADD gives idempotent grants for free.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Grant(ctx context.Context, role string, subject id.UserID, object string) error {
	if err := s.client.SAdd(ctx, roleKey(role, object), subject.String()).Err(); err != nil {
		return fmt.Errorf("grant role %s: %w", role, err)
	}
	return nil
}

func (s *RedisStore) HasRole(ctx context.Context, role string, subject id.UserID, object string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, roleKey(role, object), subject.String()).Result()
	if err != nil {
		return false, fmt.Errorf("check role %s: %w", role, err)
	}
	return ok, nil
}

func (s *RedisStore) HoldersOf(ctx context.Context, role string, object string) ([]id.UserID, error) {
	members, err := s.client.SMembers(ctx, roleKey(role, object)).Result()
	if err != nil {
		return nil, fmt.Errorf("list role holders %s: %w", role, err)
	}
	holders := make([]id.UserID, 0, len(members))
	for _, member := range members {
		u, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		holders = append(holders, id.UserID(u))
	}
	return holders, nil
}
