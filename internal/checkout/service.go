package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/internal/cart"
	"github.com/angelmondragon/deliverycart/internal/checkout/reconcile"
	"github.com/angelmondragon/deliverycart/internal/delivery"
	"github.com/angelmondragon/deliverycart/pkg/db/models"
	"github.com/angelmondragon/deliverycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/logger"
	"github.com/angelmondragon/deliverycart/pkg/maps"
	"github.com/angelmondragon/deliverycart/pkg/metrics"
	"github.com/angelmondragon/deliverycart/pkg/ordersapi"
)

const defaultGeoTimeout = 1500 * time.Millisecond

// Service prices and submits session carts.
type Service interface {
	Quote(ctx context.Context, actor Actor, input Input) (*Quote, error)
	Submit(ctx context.Context, actor Actor, input Input) (*Outcome, error)
	Confirmation(ctx context.Context, actor Actor, attemptID uuid.UUID) (*AttemptView, error)
}

// Actor identifies the session checking out.
type Actor struct {
	SessionID   string
	UserID      string
	AccessToken string
}

// Input is the checkout form. VendorID limits the checkout to one vendor's lines.
type Input struct {
	Shared   SharedFields
	VendorID *int64
}

// Quote is a priced checkout that has not been sent.
type Quote struct {
	Vendors          []VendorOrderGroup `json:"vendors"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	DeliveryFeeTotal decimal.Decimal    `json:"delivery_fee_total"`
	Total            decimal.Decimal    `json:"total"`
	FeePolicy        enums.FeePolicy    `json:"fee_policy"`
}

// Outcome is what a submission produced.
type Outcome struct {
	AttemptID        uuid.UUID        `json:"attempt_id"`
	Result           reconcile.Result `json:"result"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	DeliveryFeeTotal decimal.Decimal  `json:"delivery_fee_total"`
	Cart             *cart.Cart       `json:"cart,omitempty"`
}

type vendorLocator interface {
	Locations(ctx context.Context, vendorIDs []int64) (map[int64]delivery.Coordinate, error)
}

type geocoder interface {
	Geocode(ctx context.Context, address string) (*maps.Place, error)
}

type orderSubmitter interface {
	AddMultiple(ctx context.Context, req ordersapi.BatchRequest) (*ordersapi.BatchResponse, error)
}

type pricing interface {
	feeCalculator
	Schedule() delivery.Schedule
}

// ServiceParams wires the checkout service. Geocoder and Metrics are optional.
type ServiceParams struct {
	Carts      cart.Service
	Vendors    vendorLocator
	Geocoder   geocoder
	Orders     orderSubmitter
	Pricing    pricing
	Guard      SubmitGuard
	Attempts   AttemptRepository
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
	GeoTimeout time.Duration
	Clock      func() time.Time
}

type service struct {
	carts      cart.Service
	vendors    vendorLocator
	geocoder   geocoder
	orders     orderSubmitter
	pricing    pricing
	guard      SubmitGuard
	attempts   AttemptRepository
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	geoTimeout time.Duration
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Carts == nil:
		return nil, fmt.Errorf("cart service required")
	case params.Vendors == nil:
		return nil, fmt.Errorf("vendor locator required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders client required")
	case params.Pricing == nil:
		return nil, fmt.Errorf("fee calculator required")
	case params.Guard == nil:
		return nil, fmt.Errorf("submit guard required")
	case params.Attempts == nil:
		return nil, fmt.Errorf("attempt repository required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	geoTimeout := params.GeoTimeout
	if geoTimeout <= 0 {
		geoTimeout = defaultGeoTimeout
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		carts:      params.Carts,
		vendors:    params.Vendors,
		geocoder:   params.Geocoder,
		orders:     params.Orders,
		pricing:    params.Pricing,
		guard:      params.Guard,
		attempts:   params.Attempts,
		metrics:    params.Metrics,
		logg:       params.Logger,
		geoTimeout: geoTimeout,
		now:        clock,
	}, nil
}

func (s *service) Quote(ctx context.Context, actor Actor, input Input) (*Quote, error) {
	if strings.TrimSpace(actor.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	req, err := s.build(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	subtotal := req.Subtotal()
	fees := req.DeliveryFeeTotal()
	return &Quote{
		Vendors:          req.Groups,
		Subtotal:         subtotal,
		DeliveryFeeTotal: fees,
		Total:            subtotal.Add(fees),
		FeePolicy:        s.pricing.Schedule().Policy,
	}, nil
}

func (s *service) Submit(ctx context.Context, actor Actor, input Input) (*Outcome, error) {
	if strings.TrimSpace(actor.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	if err := ValidateShared(input.Shared); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, actor.SessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.WarnErr(ctx, "checkout.guard_release_failed", err)
		}
	}()

	started := s.now()
	req, err := s.build(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"vendor_count":       len(req.Orders),
		"delivery_fee_total": req.DeliveryFeeTotal().StringFixed(2),
	})
	s.logg.Info(ctx, "checkout.submitted")

	resp, sendErr := s.orders.AddMultiple(ctx, req.Wire(actor.AccessToken))
	if rejectedBeforeSend(sendErr) {
		return nil, sendErr
	}
	result := reconcile.Reconcile(req.VendorIDs(), resp, sendErr)

	remaining := s.applyClearing(ctx, actor.SessionID, req, result)
	attemptID := s.record(ctx, actor, req, result)
	s.observe(req, result, s.now().Sub(started))

	ctx = s.logg.WithFields(ctx, map[string]any{
		"attempt_id": attemptID.String(),
		"status":     result.Status().String(),
		"failed":     len(result.Failed()),
	})
	outcome := &Outcome{
		AttemptID:        attemptID,
		Result:           result,
		Subtotal:         req.Subtotal(),
		DeliveryFeeTotal: req.DeliveryFeeTotal(),
		Cart:             remaining,
	}
	if result.Status() == enums.CheckoutStatusFailure {
		s.logg.WarnErr(ctx, "checkout.reconciled", result.Err())
		return outcome, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Err(), "checkout failed").WithDetails(outcome)
	}
	s.logg.Info(ctx, "checkout.reconciled")
	return outcome, nil
}

func (s *service) Confirmation(ctx context.Context, actor Actor, attemptID uuid.UUID) (*AttemptView, error) {
	if strings.TrimSpace(actor.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	if attemptID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id required")
	}
	attempt, err := s.attempts.FindByID(ctx, actor.SessionID, attemptID)
	if err != nil {
		return nil, err
	}
	return NewAttemptView(attempt), nil
}

// build snapshots the cart and prices it. No network call to the order service.
func (s *service) build(ctx context.Context, actor Actor, input Input) (Request, error) {
	snapshot, err := s.carts.Get(ctx, actor.SessionID)
	if err != nil {
		return Request{}, err
	}
	lines := snapshot.Lines()
	if input.VendorID != nil {
		lines = snapshot.VendorLines(*input.VendorID)
	}
	if len(lines) == 0 {
		return Request{}, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if err := ValidateShared(input.Shared); err != nil {
		return Request{}, err
	}

	coords, err := s.vendors.Locations(ctx, VendorIDs(GroupByVendor(lines)))
	if err != nil {
		return Request{}, err
	}
	user := s.resolveUser(ctx, input.Shared)
	return BuildRequest(lines, input.Shared, coords, user, s.pricing)
}

// resolveUser prefers the device location and otherwise geocodes the address under a
// short deadline. Failures price the order without user coordinates.
func (s *service) resolveUser(ctx context.Context, shared SharedFields) *delivery.Coordinate {
	if shared.Location.Valid() {
		c := *shared.Location
		return &c
	}
	address := strings.TrimSpace(shared.Address)
	if address == "" || s.geocoder == nil {
		s.metrics.IncGeoFallback("unavailable")
		return nil
	}

	geoCtx, cancel := context.WithTimeout(ctx, s.geoTimeout)
	defer cancel()
	place, err := s.geocoder.Geocode(geoCtx, address)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(geoCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		s.metrics.IncGeoFallback(reason)
		s.logg.WarnErr(s.logg.WithField(ctx, "reason", reason), "checkout.geolocation_fallback", err)
		return nil
	}
	coord := &delivery.Coordinate{Lat: place.Location.Latitude, Lng: place.Location.Longitude}
	if !coord.Valid() {
		s.metrics.IncGeoFallback("invalid")
		return nil
	}
	return coord
}

// applyClearing deducts the submitted quantities of every vendor that took its
// order. Lines added while the request was in flight stay in the cart.
func (s *service) applyClearing(ctx context.Context, sessionID string, req Request, result reconcile.Result) *cart.Cart {
	cleared := make(map[int64]bool)
	for _, vendorID := range result.VendorsToClear() {
		cleared[vendorID] = true
	}
	if len(cleared) == 0 {
		current, err := s.carts.Get(ctx, sessionID)
		if err != nil {
			s.logg.WarnErr(ctx, "checkout.reload_cart_failed", err)
			return nil
		}
		return current
	}

	current, err := s.carts.Apply(ctx, sessionID, func(c *cart.Cart) error {
		for _, group := range req.Groups {
			if !cleared[group.VendorID] {
				continue
			}
			for _, line := range group.Lines {
				c.Deduct(line.Key(), line.Quantity)
			}
		}
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "checkout.clear_cart_failed", err)
		return nil
	}
	return current
}

// record stores the attempt together with its checkout.reconciled event. The orders
// are already placed, so a storage failure is logged and the attempt id is still returned.
func (s *service) record(ctx context.Context, actor Actor, req Request, result reconcile.Result) uuid.UUID {
	attempt := newAttemptModel(actor, req, result)
	event := newReconciledEvent(attempt.ID, actor.UserID, req, result, s.now())
	if err := s.attempts.Create(ctx, attempt, event); err != nil {
		s.logg.Error(ctx, "checkout.record_attempt_failed", err)
	}
	return attempt.ID
}

func (s *service) observe(req Request, result reconcile.Result, elapsed time.Duration) {
	s.metrics.ObserveSubmission(result.Status().String(), elapsed)
	for _, v := range result.PerVendor() {
		s.metrics.IncVendorOutcome(string(v.Outcome))
	}
	for _, o := range req.Orders {
		s.metrics.ObserveDeliveryFee(o.DeliveryFee.InexactFloat64())
	}
}

func rejectedBeforeSend(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeValidation) || pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized)
}

func newAttemptModel(actor Actor, req Request, result reconcile.Result) *models.CheckoutAttempt {
	attempt := &models.CheckoutAttempt{
		ID:                 uuid.New(),
		SessionID:          actor.SessionID,
		UserID:             actor.UserID,
		Status:             result.Status(),
		Address:            req.Shared.Address,
		UseCurrentLocation: req.Shared.UseCurrentLocation,
		DeliveryNotes:      optionalString(req.Shared.Notes),
		PaymentMethod:      req.Shared.PaymentMethod,
		SubtotalAmount:     req.Subtotal(),
		DeliveryFeeTotal:   req.DeliveryFeeTotal(),
	}
	if req.Shared.Location.Valid() {
		attempt.Location = optionalString(req.Shared.Location.String())
	}
	if err := result.Err(); err != nil {
		attempt.ErrorMessage = optionalString(err.Error())
	}

	groups := make(map[int64]VendorOrderGroup, len(req.Groups))
	for _, g := range req.Groups {
		groups[g.VendorID] = g
	}
	for i, v := range result.PerVendor() {
		g := groups[v.VendorID]
		attempt.Vendors = append(attempt.Vendors, models.CheckoutAttemptVendor{
			ID:             uuid.New(),
			AttemptID:      attempt.ID,
			Position:       i,
			VendorID:       v.VendorID,
			Outcome:        v.Outcome,
			ItemCount:      g.ItemCount,
			SubtotalAmount: g.Subtotal,
			DeliveryFee:    g.DeliveryFee,
			OrderPin:       optionalString(v.PIN),
			ContactLink:    optionalString(v.ContactLink),
			ErrorMessage:   optionalString(v.Error),
		})
	}
	return attempt
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
