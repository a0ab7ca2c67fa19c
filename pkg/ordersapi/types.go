package ordersapi

import (
	"strings"

	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
)

// Batch response statuses.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
)

// BatchRequest is the body of POST /orders/add-multiple.
type BatchRequest struct {
	AccessToken string         `json:"access_token"`
	Orders      []OrderPayload `json:"orders"`
}

// OrderPayload is one vendor sub-order.
type OrderPayload struct {
	StoreID            int64         `json:"store_id"`
	Address            string        `json:"address"`
	Location           string        `json:"location"`
	UseCurrentLocation bool          `json:"use_current_location"`
	DeliveryNotes      string        `json:"delivery_notes"`
	PaymentMethod      string        `json:"payment_method"`
	DeliveryFee        float64       `json:"delivery_fee"`
	OrderDetails       []OrderDetail `json:"order_details"`
}

// OrderDetail is a product and quantity. Variants are not sent.
type OrderDetail struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// BatchResponse is the order service reply.
type BatchResponse struct {
	Status       string        `json:"status"`
	OrderPins    []string      `json:"order_pins,omitempty"`
	WhatsappURLs []string      `json:"whatsapp_urls,omitempty"`
	Errors       []VendorError `json:"errors,omitempty"`
	Results      []OrderResult `json:"results,omitempty"`
}

// VendorError reports a rejected sub-order.
type VendorError struct {
	StoreID int64  `json:"store_id"`
	Message string `json:"message"`
}

// OrderResult is the keyed confirmation for one vendor, when the service sends it.
type OrderResult struct {
	StoreID     int64  `json:"store_id"`
	OrderPin    string `json:"order_pin"`
	WhatsappURL string `json:"whatsapp_url"`
}

// Keyed reports whether confirmations can be matched by store id.
func (r *BatchResponse) Keyed() bool {
	return r != nil && len(r.Results) > 0
}

// Validate checks the request before it leaves the process.
func (r BatchRequest) Validate() error {
	if strings.TrimSpace(r.AccessToken) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "access token required")
	}
	if len(r.Orders) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one order is required")
	}
	seen := make(map[int64]struct{}, len(r.Orders))
	for i, order := range r.Orders {
		if order.StoreID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "store id is required").WithDetail("index", i)
		}
		if _, dup := seen[order.StoreID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate store in batch").WithDetail("store_id", order.StoreID)
		}
		seen[order.StoreID] = struct{}{}
		if len(order.OrderDetails) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "order has no lines").WithDetail("store_id", order.StoreID)
		}
		for _, detail := range order.OrderDetails {
			if detail.ProductID <= 0 || detail.Quantity < 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid order line").
					WithDetails(map[string]any{"store_id": order.StoreID, "product_id": detail.ProductID, "quantity": detail.Quantity})
			}
		}
	}
	return nil
}

func (r *BatchResponse) validate() error {
	if r == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "empty add-multiple response")
	}
	r.Status = strings.TrimSpace(r.Status)
	if r.Status == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "add-multiple response missing status")
	}
	return nil
}
