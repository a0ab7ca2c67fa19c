package cart

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
)

// Service applies cart operations to the session's stored cart.
// Mutations for one session run one at a time, also across API instances when a
// SessionLock is configured.
type Service interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	AddItem(ctx context.Context, sessionID string, item LineItem, delta int) (*Cart, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64, size, color Choice) (*Cart, error)
	RemoveLine(ctx context.Context, sessionID string, productID int64, size, color Choice) (*Cart, error)
	ClearVendor(ctx context.Context, sessionID string, vendorID int64) (*Cart, error)
	ClearAll(ctx context.Context, sessionID string) error
	Apply(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error)
}

type service struct {
	repo   Repository
	locks  *sessionLocks
	remote SessionLock
}

// NewService constructs the session cart service. A nil lock limits
// serialisation to this process.
func NewService(repo Repository, lock SessionLock) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo, locks: newSessionLocks(), remote: lock}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	return s.repo.Load(ctx, sessionID)
}

func (s *service) AddItem(ctx context.Context, sessionID string, item LineItem, delta int) (*Cart, error) {
	if err := ValidateLineItem(item); err != nil {
		return nil, err
	}
	return s.Apply(ctx, sessionID, func(c *Cart) error {
		c.AddItem(item, delta)
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, productID int64, size, color Choice) (*Cart, error) {
	return s.Apply(ctx, sessionID, func(c *Cart) error {
		c.RemoveItem(productID, size, color)
		return nil
	})
}

func (s *service) RemoveLine(ctx context.Context, sessionID string, productID int64, size, color Choice) (*Cart, error) {
	return s.Apply(ctx, sessionID, func(c *Cart) error {
		c.RemoveLine(productID, size, color)
		return nil
	})
}

func (s *service) ClearVendor(ctx context.Context, sessionID string, vendorID int64) (*Cart, error) {
	return s.Apply(ctx, sessionID, func(c *Cart) error {
		c.ClearVendor(vendorID)
		return nil
	})
}

func (s *service) ClearAll(ctx context.Context, sessionID string) error {
	return s.withSession(ctx, sessionID, func() error {
		return s.repo.Delete(ctx, sessionID)
	})
}

// Apply loads the cart, runs fn and saves the result. Nothing is saved when fn fails.
func (s *service) Apply(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error) {
	if fn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart mutation required")
	}
	var out *Cart
	err := s.withSession(ctx, sessionID, func() error {
		c, err := s.repo.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, sessionID, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withSession runs fn holding the local session mutex and then the shared lock.
func (s *service) withSession(ctx context.Context, sessionID string, fn func() error) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if s.remote != nil {
		release, err := s.remote.Lock(ctx, sessionID)
		if err != nil {
			return err
		}
		// A failed release is left to the lock ttl.
		defer func() { _ = release(context.WithoutCancel(ctx)) }()
	}
	return fn()
}

// ValidateLineItem checks the fields a line needs before it can enter a cart.
func ValidateLineItem(item LineItem) error {
	details := map[string]string{}
	if item.ProductID <= 0 {
		details["product_id"] = "is required"
	}
	if item.VendorID <= 0 {
		details["vendor_id"] = "is required"
	}
	if item.UnitPrice.IsNegative() {
		details["unit_price"] = "must be at least 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid line item").WithDetails(details)
	}
	return nil
}
