package redis

import (
	"context"

	"telegram-stt-bot/internal/domain/ports/repository"
)

var _ repository.AuthorizedUsers = (*AuthStore)(nil)

const authKey = "stt:authorized_users"

// AuthStore keeps the set of password-authorized users in Redis so
// authorization survives restarts and is shared between replicas.
type AuthStore struct {
	client RedisClient
}

func NewAuthStore(client RedisClient) *AuthStore {
	return &AuthStore{client: client}
}

func (s *AuthStore) IsAuthorized(ctx context.Context, userID int64) (bool, error) {
	return s.client.SIsMember(ctx, authKey, userID)
}

func (s *AuthStore) Authorize(ctx context.Context, userID int64) error {
	return s.client.SAdd(ctx, authKey, userID)
}
