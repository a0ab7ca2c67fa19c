package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/redis"
)

const (
	cartLockName     = "cart"
	defaultLockTTL   = 10 * time.Second
	defaultLockWait  = 3 * time.Second
	defaultLockRetry = 15 * time.Millisecond
)

// SessionLock serialises cart mutations for one session across API instances.
type SessionLock interface {
	Lock(ctx context.Context, sessionID string) (unlock func(context.Context) error, err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type lockKeyer interface {
	LockKey(sessionID, name string) string
}

// RedisSessionLock is a SETNX lock on the session's cart key. It expires after
// ttl when the holder dies mid-mutation.
type RedisSessionLock struct {
	store lockStore
	keys  lockKeyer
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

// NewRedisSessionLock builds the cross-instance cart lock.
func NewRedisSessionLock(client *redis.Client, ttl, wait time.Duration) (*RedisSessionLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for cart lock")
	}
	return newRedisSessionLock(client, client, ttl, wait, defaultLockRetry)
}

func newRedisSessionLock(store lockStore, keys lockKeyer, ttl, wait, retry time.Duration) (*RedisSessionLock, error) {
	if store == nil || keys == nil {
		return nil, errors.New("lock store required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	if retry <= 0 {
		retry = defaultLockRetry
	}
	return &RedisSessionLock{store: store, keys: keys, ttl: ttl, wait: wait, retry: retry}, nil
}

// Lock retries SETNX until it wins, ctx ends or the wait budget runs out.
func (l *RedisSessionLock) Lock(ctx context.Context, sessionID string) (func(context.Context) error, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	key := l.keys.LockKey(sessionID, cartLockName)
	owner := uuid.NewString()

	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lock")
		}
		if ok {
			return func(ctx context.Context) error { return l.release(ctx, key, owner) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart is being updated, try again")
		case <-ticker.C:
		}
	}
}

// release deletes the key only while owner still holds it.
func (l *RedisSessionLock) release(ctx context.Context, key, owner string) error {
	value, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart lock owner")
	}
	if value != owner {
		return nil
	}
	if err := l.store.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release cart lock")
	}
	return nil
}

// sessionLocks hands out one mutex per session id and drops it once unused.
// It queues callers inside one process before they contend on the shared lock.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// lock blocks until the session is free and returns the matching unlock func.
func (s *sessionLocks) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func (s *sessionLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
