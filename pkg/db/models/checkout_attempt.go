package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/pkg/enums"
)

// CheckoutAttempt records one batch submission and its reconciled outcome.
type CheckoutAttempt struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	SessionID          string                  `gorm:"column:session_id;not null;index"`
	UserID             string                  `gorm:"column:user_id;not null"`
	Status             enums.CheckoutStatus    `gorm:"column:status;type:text;not null"`
	Address            string                  `gorm:"column:address;not null"`
	Location           *string                 `gorm:"column:location"`
	UseCurrentLocation bool                    `gorm:"column:use_current_location;not null;default:false"`
	DeliveryNotes      *string                 `gorm:"column:delivery_notes"`
	PaymentMethod      enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	SubtotalAmount     decimal.Decimal         `gorm:"column:subtotal_amount;type:numeric(12,2);not null"`
	DeliveryFeeTotal   decimal.Decimal         `gorm:"column:delivery_fee_total;type:numeric(12,2);not null"`
	ErrorMessage       *string                 `gorm:"column:error_message"`
	Vendors            []CheckoutAttemptVendor `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
}

// CheckoutAttemptVendor is the per-vendor row of a checkout attempt.
type CheckoutAttemptVendor struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	AttemptID      uuid.UUID                `gorm:"column:attempt_id;type:uuid;not null;index"`
	Position       int                      `gorm:"column:position;not null"`
	VendorID       int64                    `gorm:"column:vendor_id;not null"`
	Outcome        enums.VendorOrderOutcome `gorm:"column:outcome;type:text;not null"`
	ItemCount      int                      `gorm:"column:item_count;not null"`
	SubtotalAmount decimal.Decimal          `gorm:"column:subtotal_amount;type:numeric(12,2);not null"`
	DeliveryFee    decimal.Decimal          `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	OrderPin       *string                  `gorm:"column:order_pin"`
	ContactLink    *string                  `gorm:"column:contact_link"`
	ErrorMessage   *string                  `gorm:"column:error_message"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
}
