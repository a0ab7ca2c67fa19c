package enums

// VariantAxis names an independent selectable product dimension.
type VariantAxis string

const (
	VariantAxisSize  VariantAxis = "size"
	VariantAxisColor VariantAxis = "color"
)

// String implements fmt.Stringer.
func (a VariantAxis) String() string {
	return string(a)
}

// GateState is the state of a product card's variant selection gate.
type GateState string

const (
	GateStateIdle           GateState = "idle"
	GateStateSelectingSize  GateState = "selecting_size"
	GateStateSelectingColor GateState = "selecting_color"
	GateStateReady          GateState = "ready"
	GateStateConfirmed      GateState = "confirmed"
)

// String implements fmt.Stringer.
func (s GateState) String() string {
	return string(s)
}
