package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eduplatform/internal/security"
)

var ErrTokenNotFound = errors.New("one-time token not found or expired")

// OneTimeTokens stores single-use tokens (e-mail verification, password
// reset) keyed by their hash so the raw value never reaches redis.
type OneTimeTokens struct {
	client redis.UniversalClient
	prefix string
}

func NewOneTimeTokens(client redis.UniversalClient) *OneTimeTokens {
	return &OneTimeTokens{client: client, prefix: "auth:onetime"}
}

func (s *OneTimeTokens) key(purpose, token string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, purpose, security.HashToken(token))
}

func (s *OneTimeTokens) Put(ctx context.Context, purpose, token, identityID string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, s.key(purpose, token), identityID, ttl).Result()
	if err != nil {
		return fmt.Errorf("store %s token: %w", purpose, err)
	}
	if !ok {
		return fmt.Errorf("store %s token: key collision", purpose)
	}
	return nil
}

// Consume returns the identity bound to token and deletes it atomically.
func (s *OneTimeTokens) Consume(ctx context.Context, purpose, token string) (string, error) {
	identityID, err := s.client.GetDel(ctx, s.key(purpose, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("consume %s token: %w", purpose, err)
	}
	return identityID, nil
}
