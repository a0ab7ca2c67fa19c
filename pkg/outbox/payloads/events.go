package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/deliverycart/pkg/enums"
)

// CheckoutReconciledEvent announces the outcome of a checkout attempt. Order PINs
// and contact links never leave the attempt record.
type CheckoutReconciledEvent struct {
	AttemptID        uuid.UUID               `json:"attempt_id"`
	Status           enums.CheckoutStatus    `json:"status"`
	PaymentMethod    enums.PaymentMethod     `json:"payment_method"`
	Subtotal         string                  `json:"subtotal"`
	DeliveryFeeTotal string                  `json:"delivery_fee_total"`
	Vendors          []CheckoutVendorOutcome `json:"vendors"`
}

// CheckoutVendorOutcome is one vendor of a CheckoutReconciledEvent.
type CheckoutVendorOutcome struct {
	VendorID    int64                    `json:"vendor_id"`
	Outcome     enums.VendorOrderOutcome `json:"outcome"`
	DeliveryFee string                   `json:"delivery_fee"`
	Error       string                   `json:"error,omitempty"`
}
