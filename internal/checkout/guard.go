package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/redis"
)

const (
	submitLockName        = "checkout_submit"
	defaultSubmitGuardTTL = 45 * time.Second
)

// SubmitGuard allows one outstanding submission per session.
type SubmitGuard interface {
	Acquire(ctx context.Context, sessionID string) (release func(context.Context) error, err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type lockKeyer interface {
	LockKey(sessionID, name string) string
}

// RedisSubmitGuard implements SubmitGuard with SETNX plus TTL. The TTL bounds how
// long a crashed submission can hold the session.
type RedisSubmitGuard struct {
	store lockStore
	keys  lockKeyer
	ttl   time.Duration
}

// NewSubmitGuard constructs a Redis-backed submit guard.
func NewSubmitGuard(client *redis.Client, ttl time.Duration) (*RedisSubmitGuard, error) {
	if client == nil {
		return nil, errors.New("redis client required for submit guard")
	}
	return newSubmitGuard(client, client, ttl), nil
}

func newSubmitGuard(store lockStore, keys lockKeyer, ttl time.Duration) *RedisSubmitGuard {
	if ttl <= 0 {
		ttl = defaultSubmitGuardTTL
	}
	return &RedisSubmitGuard{store: store, keys: keys, ttl: ttl}
}

// Acquire takes the session's submit lock or fails fast with a conflict.
func (g *RedisSubmitGuard) Acquire(ctx context.Context, sessionID string) (func(context.Context) error, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	key := g.keys.LockKey(sessionID, submitLockName)
	owner := uuid.NewString()
	ok, err := g.store.SetNX(ctx, key, owner, g.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("setnx: %w", err), "acquire submit guard")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	return func(ctx context.Context) error {
		return g.release(ctx, key, owner)
	}, nil
}

// release frees the lock only if owner still holds it.
func (g *RedisSubmitGuard) release(ctx context.Context, key, owner string) error {
	value, err := g.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		return nil
	}
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
