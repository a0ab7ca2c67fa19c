package enums

import "fmt"

// FeePolicy selects how the flat delivery minimum combines with the distance charge.
type FeePolicy string

const (
	// FeePolicyFloorReplaces charges the floor whenever the distance charge falls below it.
	FeePolicyFloorReplaces FeePolicy = "floor_replaces"
	// FeePolicyFloorPlusOverage charges the floor below the threshold and floor plus distance charge above it.
	FeePolicyFloorPlusOverage FeePolicy = "floor_plus_overage"
)

var validFeePolicies = []FeePolicy{
	FeePolicyFloorReplaces,
	FeePolicyFloorPlusOverage,
}

// String implements fmt.Stringer.
func (p FeePolicy) String() string {
	return string(p)
}

// IsValid reports whether the value is a known FeePolicy.
func (p FeePolicy) IsValid() bool {
	for _, candidate := range validFeePolicies {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseFeePolicy converts raw input into a FeePolicy.
func ParseFeePolicy(value string) (FeePolicy, error) {
	for _, candidate := range validFeePolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fee policy %q", value)
}
