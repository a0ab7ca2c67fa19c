package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/deliverycart/internal/checkout/reconcile"
	"github.com/angelmondragon/deliverycart/pkg/enums"
	"github.com/angelmondragon/deliverycart/pkg/outbox"
	"github.com/angelmondragon/deliverycart/pkg/outbox/payloads"
)

// newReconciledEvent describes a reconciled attempt for the outbox. PINs and
// contact links stay out of the payload.
func newReconciledEvent(attemptID uuid.UUID, userID string, req Request, result reconcile.Result, now time.Time) outbox.DomainEvent {
	fees := make(map[int64]string, len(req.Orders))
	for _, o := range req.Orders {
		fees[o.VendorID] = o.DeliveryFee.StringFixed(2)
	}
	vendors := make([]payloads.CheckoutVendorOutcome, 0, len(result.PerVendor()))
	for _, v := range result.PerVendor() {
		vendors = append(vendors, payloads.CheckoutVendorOutcome{
			VendorID:    v.VendorID,
			Outcome:     v.Outcome,
			DeliveryFee: fees[v.VendorID],
			Error:       v.Error,
		})
	}

	var actor *outbox.ActorRef
	if userID != "" {
		actor = &outbox.ActorRef{UserID: userID}
	}
	return outbox.DomainEvent{
		EventType:     enums.EventCheckoutReconciled,
		AggregateType: enums.AggregateCheckoutAttempt,
		AggregateID:   attemptID,
		Actor:         actor,
		OccurredAt:    now.UTC(),
		Data: payloads.CheckoutReconciledEvent{
			AttemptID:        attemptID,
			Status:           result.Status(),
			PaymentMethod:    req.Shared.PaymentMethod,
			Subtotal:         req.Subtotal().StringFixed(2),
			DeliveryFeeTotal: req.DeliveryFeeTotal().StringFixed(2),
			Vendors:          vendors,
		},
	}
}
