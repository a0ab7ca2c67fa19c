package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/redis"
)

// Repository persists one cart per session.
type Repository interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, cart *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type cartKeyer interface {
	CartKey(sessionID string) string
}

type redisRepository struct {
	store sessionStore
	keys  cartKeyer
	ttl   time.Duration
}

// NewRepository returns a Redis-backed session cart repository. Every save refreshes the TTL.
func NewRepository(client *redis.Client, ttl time.Duration) (Repository, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return newRedisRepository(client, client, ttl)
}

func newRedisRepository(store sessionStore, keys cartKeyer, ttl time.Duration) (*redisRepository, error) {
	if store == nil || keys == nil {
		return nil, errors.New("session store required")
	}
	if ttl <= 0 {
		return nil, errors.New("cart ttl must be positive")
	}
	return &redisRepository{store: store, keys: keys, ttl: ttl}, nil
}

func (r *redisRepository) Load(ctx context.Context, sessionID string) (*Cart, error) {
	key, err := r.key(sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	cart := &Cart{}
	if err := json.Unmarshal([]byte(raw), cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	return cart, nil
}

func (r *redisRepository) Save(ctx context.Context, sessionID string, cart *Cart) error {
	if cart.IsEmpty() {
		return r.Delete(ctx, sessionID)
	}
	key, err := r.key(sessionID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := r.store.Set(ctx, key, string(payload), r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (r *redisRepository) Delete(ctx context.Context, sessionID string) error {
	key, err := r.key(sessionID)
	if err != nil {
		return err
	}
	if err := r.store.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}

func (r *redisRepository) key(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	return r.keys.CartKey(sessionID), nil
}
