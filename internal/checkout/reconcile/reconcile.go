package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/deliverycart/pkg/enums"
	"github.com/angelmondragon/deliverycart/pkg/ordersapi"
)

const (
	msgNotPlaced     = "order was not placed"
	msgEmptyResponse = "order service returned no response"
)

// VendorOutcome is the result of one vendor sub-order.
type VendorOutcome struct {
	VendorID    int64                    `json:"vendor_id"`
	Outcome     enums.VendorOrderOutcome `json:"outcome"`
	PIN         string                   `json:"pin,omitempty"`
	ContactLink string                   `json:"contact_link,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// Succeeded reports whether the vendor order went through.
func (v VendorOutcome) Succeeded() bool {
	return v.Outcome == enums.VendorOrderOutcomeSucceeded
}

// Result is the reconciled outcome of one batch submission. It is read-only.
type Result struct {
	status  enums.CheckoutStatus
	vendors []VendorOutcome
	err     error
}

// Reconcile interprets the order service reply for the vendors that were submitted,
// in submission order. It never touches the cart.
func Reconcile(submitted []int64, resp *ordersapi.BatchResponse, transportErr error) Result {
	if transportErr != nil {
		return failAll(submitted, transportErr)
	}
	if resp == nil {
		return failAll(submitted, errors.New(msgEmptyResponse))
	}

	switch enums.ParseCheckoutStatus(resp.Status) {
	case enums.CheckoutStatusSuccess:
		return withConfirmations(submitted, nil, resp)
	case enums.CheckoutStatusPartialSuccess:
		return withConfirmations(submitted, vendorErrors(submitted, resp.Errors), resp)
	default:
		return failAll(submitted, backendError(resp))
	}
}

func withConfirmations(submitted []int64, failed map[int64]string, resp *ordersapi.BatchResponse) Result {
	vendors := make([]VendorOutcome, 0, len(submitted))
	succeeded := make([]int64, 0, len(submitted))
	var errs error
	for _, id := range submitted {
		if msg, ok := failed[id]; ok {
			vendors = append(vendors, VendorOutcome{VendorID: id, Outcome: enums.VendorOrderOutcomeFailed, Error: msg})
			errs = multierr.Append(errs, fmt.Errorf("vendor %d: %s", id, msg))
			continue
		}
		vendors = append(vendors, VendorOutcome{VendorID: id, Outcome: enums.VendorOrderOutcomeSucceeded})
		succeeded = append(succeeded, id)
	}

	attachConfirmations(vendors, succeeded, resp)

	status := enums.CheckoutStatusPartialSuccess
	switch {
	case len(succeeded) == len(submitted):
		status = enums.CheckoutStatusSuccess
	case len(succeeded) == 0:
		status = enums.CheckoutStatusFailure
	}
	return Result{status: status, vendors: vendors, err: errs}
}

// attachConfirmations matches PINs and contact links by store id when the reply is
// keyed, and by position over the succeeded vendors otherwise.
func attachConfirmations(vendors []VendorOutcome, succeeded []int64, resp *ordersapi.BatchResponse) {
	if resp.Keyed() {
		byStore := make(map[int64]ordersapi.OrderResult, len(resp.Results))
		for _, r := range resp.Results {
			byStore[r.StoreID] = r
		}
		for i := range vendors {
			if !vendors[i].Succeeded() {
				continue
			}
			if r, ok := byStore[vendors[i].VendorID]; ok {
				vendors[i].PIN = strings.TrimSpace(r.OrderPin)
				vendors[i].ContactLink = strings.TrimSpace(r.WhatsappURL)
			}
		}
		return
	}

	position := make(map[int64]int, len(succeeded))
	for i, id := range succeeded {
		position[id] = i
	}
	for i := range vendors {
		pos, ok := position[vendors[i].VendorID]
		if !ok || !vendors[i].Succeeded() {
			continue
		}
		if pos < len(resp.OrderPins) {
			vendors[i].PIN = strings.TrimSpace(resp.OrderPins[pos])
		}
		if pos < len(resp.WhatsappURLs) {
			vendors[i].ContactLink = strings.TrimSpace(resp.WhatsappURLs[pos])
		}
	}
}

// vendorErrors keeps errors for submitted vendors only. Several messages for one
// vendor are joined.
func vendorErrors(submitted []int64, reported []ordersapi.VendorError) map[int64]string {
	known := make(map[int64]struct{}, len(submitted))
	for _, id := range submitted {
		known[id] = struct{}{}
	}
	out := make(map[int64]string)
	for _, e := range reported {
		if _, ok := known[e.StoreID]; !ok {
			continue
		}
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			msg = msgNotPlaced
		}
		if prev, ok := out[e.StoreID]; ok {
			msg = prev + "; " + msg
		}
		out[e.StoreID] = msg
	}
	return out
}

func backendError(resp *ordersapi.BatchResponse) error {
	var errs error
	for _, e := range resp.Errors {
		if msg := strings.TrimSpace(e.Message); msg != "" {
			errs = multierr.Append(errs, fmt.Errorf("vendor %d: %s", e.StoreID, msg))
		}
	}
	if errs == nil {
		errs = fmt.Errorf("order service reported status %q", resp.Status)
	}
	return errs
}

func failAll(submitted []int64, err error) Result {
	vendors := make([]VendorOutcome, 0, len(submitted))
	for _, id := range submitted {
		vendors = append(vendors, VendorOutcome{VendorID: id, Outcome: enums.VendorOrderOutcomeFailed, Error: msgNotPlaced})
	}
	return Result{status: enums.CheckoutStatusFailure, vendors: vendors, err: err}
}

// Status returns the overall status.
func (r Result) Status() enums.CheckoutStatus {
	return r.status
}

// Err returns the aggregate error, nil on full success.
func (r Result) Err() error {
	return r.err
}

// PerVendor returns a copy of the per-vendor outcomes in submission order.
func (r Result) PerVendor() []VendorOutcome {
	out := make([]VendorOutcome, len(r.vendors))
	copy(out, r.vendors)
	return out
}

// Succeeded returns the vendors whose orders went through.
func (r Result) Succeeded() []int64 {
	return r.filter(true)
}

// Failed returns the vendors whose orders did not go through.
func (r Result) Failed() []int64 {
	return r.filter(false)
}

// ClearAll reports whether the whole cart may be cleared.
func (r Result) ClearAll() bool {
	return r.status == enums.CheckoutStatusSuccess
}

// VendorsToClear returns the vendors whose lines may be removed from the cart.
func (r Result) VendorsToClear() []int64 {
	if r.status == enums.CheckoutStatusFailure {
		return []int64{}
	}
	return r.Succeeded()
}

func (r Result) filter(succeeded bool) []int64 {
	ids := []int64{}
	for _, v := range r.vendors {
		if v.Succeeded() == succeeded {
			ids = append(ids, v.VendorID)
		}
	}
	return ids
}

type resultJSON struct {
	OverallStatus enums.CheckoutStatus `json:"overall_status"`
	PerVendor     []VendorOutcome      `json:"per_vendor"`
	Error         string               `json:"error,omitempty"`
}

// MarshalJSON renders the result for API responses.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{OverallStatus: r.status, PerVendor: r.PerVendor()}
	if r.err != nil {
		out.Error = r.err.Error()
	}
	return json.Marshal(out)
}
