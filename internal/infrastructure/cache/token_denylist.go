package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RevokedTokenKeyPrefix is shared with the identity service, which writes
// revoked_token:<token_id> on logout with the token's remaining lifetime as TTL.
const RevokedTokenKeyPrefix = "revoked_token:"

// TokenDenylist answers whether a bearer token has been revoked before expiry.
type TokenDenylist struct {
	client *redis.Client
}

func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: client}
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, RevokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

func RevokedTokenKey(tokenID string) string {
	return RevokedTokenKeyPrefix + tokenID
}
