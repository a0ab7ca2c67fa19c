package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/pkg/db/models"
	"github.com/angelmondragon/deliverycart/pkg/enums"
)

// AttemptView is the confirmation payload for a recorded checkout attempt.
type AttemptView struct {
	ID               uuid.UUID            `json:"id"`
	Status           enums.CheckoutStatus `json:"status"`
	Address          string               `json:"address"`
	PaymentMethod    enums.PaymentMethod  `json:"payment_method"`
	Subtotal         decimal.Decimal      `json:"subtotal"`
	DeliveryFeeTotal decimal.Decimal      `json:"delivery_fee_total"`
	Total            decimal.Decimal      `json:"total"`
	Error            string               `json:"error,omitempty"`
	Vendors          []AttemptVendorView  `json:"vendors"`
	CreatedAt        time.Time            `json:"created_at"`
}

// AttemptVendorView is one vendor row of an AttemptView.
type AttemptVendorView struct {
	VendorID    int64                    `json:"vendor_id"`
	Outcome     enums.VendorOrderOutcome `json:"outcome"`
	ItemCount   int                      `json:"item_count"`
	Subtotal    decimal.Decimal          `json:"subtotal"`
	DeliveryFee decimal.Decimal          `json:"delivery_fee"`
	PIN         string                   `json:"pin,omitempty"`
	ContactLink string                   `json:"contact_link,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// NewAttemptView maps a stored attempt.
func NewAttemptView(attempt *models.CheckoutAttempt) *AttemptView {
	if attempt == nil {
		return nil
	}
	view := &AttemptView{
		ID:               attempt.ID,
		Status:           attempt.Status,
		Address:          attempt.Address,
		PaymentMethod:    attempt.PaymentMethod,
		Subtotal:         attempt.SubtotalAmount,
		DeliveryFeeTotal: attempt.DeliveryFeeTotal,
		Total:            attempt.SubtotalAmount.Add(attempt.DeliveryFeeTotal),
		Error:            deref(attempt.ErrorMessage),
		Vendors:          make([]AttemptVendorView, 0, len(attempt.Vendors)),
		CreatedAt:        attempt.CreatedAt,
	}
	for _, v := range attempt.Vendors {
		view.Vendors = append(view.Vendors, AttemptVendorView{
			VendorID:    v.VendorID,
			Outcome:     v.Outcome,
			ItemCount:   v.ItemCount,
			Subtotal:    v.SubtotalAmount,
			DeliveryFee: v.DeliveryFee,
			PIN:         deref(v.OrderPin),
			ContactLink: deref(v.ContactLink),
			Error:       deref(v.ErrorMessage),
		})
	}
	return view
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
