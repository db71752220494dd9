package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
)

// Authenticator maps a session token to the id of the user owning it.
type Authenticator struct {
	cache  Cache
	logger logging.Logger
}

func NewAuthenticator(cache Cache, logger logging.Logger) *Authenticator {
	return &Authenticator{cache: cache, logger: logger.With("module", "sessions")}
}

// Key returns the cache key of a token.
func Key(token string) string {
	return common.SessionKeyPrefix + token
}

// Authenticate fails closed: any problem, including a cache outage, yields
// an error matching common.ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrUnauthorized
	}

	userID, err := a.cache.Get(ctx, Key(token))
	if err != nil {
		if errors.Is(err, common.ErrCacheMiss) {
			return "", common.ErrUnauthorized
		}
		a.logger.Error(ctx, "session lookup failed", "error", err)
		return "", fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	if userID == "" {
		return "", common.ErrUnauthorized
	}

	return userID, nil
}
