package enums

// CheckoutStatus is the overall outcome of a batch checkout submission.
type CheckoutStatus string

const (
	CheckoutStatusSuccess        CheckoutStatus = "success"
	CheckoutStatusPartialSuccess CheckoutStatus = "partial_success"
	CheckoutStatusFailure        CheckoutStatus = "failure"
)

// String implements fmt.Stringer.
func (s CheckoutStatus) String() string {
	return string(s)
}

// ParseCheckoutStatus maps a backend status onto a CheckoutStatus.
// Anything other than success or partial_success is a failure.
func ParseCheckoutStatus(value string) CheckoutStatus {
	switch CheckoutStatus(value) {
	case CheckoutStatusSuccess:
		return CheckoutStatusSuccess
	case CheckoutStatusPartialSuccess:
		return CheckoutStatusPartialSuccess
	default:
		return CheckoutStatusFailure
	}
}

// VendorOrderOutcome records whether a single vendor sub-order went through.
type VendorOrderOutcome string

const (
	VendorOrderOutcomeSucceeded VendorOrderOutcome = "succeeded"
	VendorOrderOutcomeFailed    VendorOrderOutcome = "failed"
)
