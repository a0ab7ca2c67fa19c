package delivery

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/pkg/config"
	"github.com/angelmondragon/deliverycart/pkg/enums"
)

const feeDecimals = 2

// Schedule is the configured fee schedule.
type Schedule struct {
	Policy      enums.FeePolicy
	RatePerKm   decimal.Decimal
	FloorFee    decimal.Decimal
	Threshold   decimal.Decimal
	FallbackFee decimal.Decimal
}

// ScheduleFromConfig parses the delivery configuration.
func ScheduleFromConfig(cfg config.DeliveryConfig) (Schedule, error) {
	rate, floor, threshold, fallback, err := cfg.Amounts()
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{
		Policy:      cfg.FeePolicy(),
		RatePerKm:   rate,
		FloorFee:    floor,
		Threshold:   threshold,
		FallbackFee: fallback,
	}, nil
}

func (s Schedule) validate() error {
	if !s.Policy.IsValid() {
		return fmt.Errorf("invalid fee policy %q", s.Policy)
	}
	for name, v := range map[string]decimal.Decimal{
		"rate per km":  s.RatePerKm,
		"floor fee":    s.FloorFee,
		"threshold":    s.Threshold,
		"fallback fee": s.FallbackFee,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	return nil
}

// Calculator prices delivery for a vendor group.
type Calculator struct {
	schedule Schedule
}

// NewCalculator validates the schedule and returns a calculator.
func NewCalculator(schedule Schedule) (*Calculator, error) {
	if err := schedule.validate(); err != nil {
		return nil, err
	}
	return &Calculator{schedule: schedule}, nil
}

// Schedule returns the calculator's schedule.
func (c *Calculator) Schedule() Schedule {
	return c.schedule
}

// Fee prices delivery between user and vendor. Missing or invalid coordinates
// yield the fallback fee. The result is never below the floor.
func (c *Calculator) Fee(user, vendor *Coordinate) decimal.Decimal {
	s := c.schedule
	if !user.Valid() || !vendor.Valid() {
		return decimal.Max(s.FallbackFee.Round(feeDecimals), s.FloorFee)
	}

	computed := s.RatePerKm.Mul(decimal.NewFromFloat(HaversineKm(*user, *vendor)))
	var fee decimal.Decimal
	switch s.Policy {
	case enums.FeePolicyFloorPlusOverage:
		if computed.LessThan(s.Threshold) {
			fee = s.FloorFee
		} else {
			fee = s.FloorFee.Add(computed)
		}
	default:
		fee = decimal.Max(computed, s.FloorFee)
	}
	return decimal.Max(fee.Round(feeDecimals), s.FloorFee)
}

// ComputeFee prices delivery with the floor-replaces policy. Missing coordinates
// fall back to the floor.
func ComputeFee(user, vendor *Coordinate, ratePerKm, floorFee decimal.Decimal) decimal.Decimal {
	calc := &Calculator{schedule: Schedule{
		Policy:      enums.FeePolicyFloorReplaces,
		RatePerKm:   ratePerKm,
		FloorFee:    floorFee,
		FallbackFee: floorFee,
	}}
	return calc.Fee(user, vendor)
}
