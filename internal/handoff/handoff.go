package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/deliverycart/internal/cart"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/redis"
)

const defaultTTL = 10 * time.Minute

// Payload is one vendor's cart lines handed from the cart view to checkout.
type Payload struct {
	VendorID  int64           `json:"vendor_id"`
	Lines     []cart.LineItem `json:"lines"`
	CreatedAt time.Time       `json:"created_at"`
}

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
}

type handoffKeyer interface {
	HandoffKey(sessionID string) string
}

type cartReader interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)
}

// Service stages and consumes the per-session checkout handoff. The handoff is
// stored under a fixed key name, so staging again replaces the previous one.
type Service struct {
	store store
	keys  handoffKeyer
	carts cartReader
	ttl   time.Duration
	now   func() time.Time
}

// NewService builds the handoff service on Redis.
func NewService(client *redis.Client, carts cartReader, ttl time.Duration) (*Service, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return newService(client, client, carts, ttl)
}

func newService(s store, keys handoffKeyer, carts cartReader, ttl time.Duration) (*Service, error) {
	if carts == nil {
		return nil, errors.New("cart reader required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{store: s, keys: keys, carts: carts, ttl: ttl, now: time.Now}, nil
}

// Stage copies vendorID's current lines into the handoff slot.
func (s *Service) Stage(ctx context.Context, sessionID string, vendorID int64) (*Payload, error) {
	key, err := s.key(sessionID)
	if err != nil {
		return nil, err
	}
	if vendorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required").WithDetail("vendor_id", "must be positive")
	}
	current, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	lines := current.VendorLines(vendorID)
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no items for vendor").WithDetail("vendor_id", vendorID)
	}

	payload := &Payload{VendorID: vendorID, Lines: lines, CreatedAt: s.now().UTC()}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode handoff")
	}
	if err := s.store.Set(ctx, key, string(raw), s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store handoff")
	}
	return payload, nil
}

// Take reads and removes the handoff. A second Take finds nothing.
func (s *Service) Take(ctx context.Context, sessionID string) (*Payload, error) {
	key, err := s.key(sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := s.store.GetDel(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout handoff")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read handoff")
	}
	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode handoff")
	}
	return &payload, nil
}

func (s *Service) key(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	return s.keys.HandoffKey(sessionID), nil
}
