package variant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/internal/cart"
	"github.com/angelmondragon/deliverycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
)

// Product is the catalog view a product card hands to the gate.
type Product struct {
	ID        int64
	Name      string
	UnitPrice decimal.Decimal
	VendorID  int64
	ImageRef  string
	Sizes     []string
	Colors    []string
	Stock     int
}

// HasSizes reports whether the product declares a size axis.
func (p Product) HasSizes() bool { return len(p.Sizes) > 0 }

// HasColors reports whether the product declares a color axis.
func (p Product) HasColors() bool { return len(p.Colors) > 0 }

// Available reports whether the product can be added at all.
func (p Product) Available() bool { return p.Stock > 1 }

// Adder receives a confirmed selection. *cart.Cart satisfies it.
type Adder interface {
	AddItem(item cart.LineItem, delta int)
}

// MissingAxisError reports a confirm attempt with an unresolved axis.
type MissingAxisError struct {
	Axis enums.VariantAxis
}

func (e *MissingAxisError) Error() string {
	return fmt.Sprintf("%s selection required", e.Axis)
}

// Gate walks a product card through size, color and quantity before an add.
type Gate struct {
	product  Product
	state    enums.GateState
	size     cart.Choice
	color    cart.Choice
	quantity int
}

// NewGate returns an idle gate for the product.
func NewGate(product Product) *Gate {
	return &Gate{product: product, state: enums.GateStateIdle}
}

// State returns the current gate state.
func (g *Gate) State() enums.GateState {
	return g.state
}

// Quantity returns the pending quantity.
func (g *Gate) Quantity() int {
	return g.quantity
}

// Start opens the selection flow. Products with stock of one or less are unavailable.
func (g *Gate) Start() error {
	if !g.product.Available() {
		g.state = enums.GateStateIdle
		return pkgerrors.New(pkgerrors.CodeValidation, "product unavailable").
			WithDetail("product_id", g.product.ID)
	}
	g.size = cart.None()
	g.color = cart.None()
	g.quantity = 1
	g.state = g.nextState()
	return nil
}

// SelectSize records the size. It is allowed any time after Start.
func (g *Gate) SelectSize(value string) error {
	if err := g.requireStarted(); err != nil {
		return err
	}
	if !g.product.HasSizes() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product has no sizes")
	}
	choice, err := pick(enums.VariantAxisSize, value, g.product.Sizes)
	if err != nil {
		return err
	}
	g.size = choice
	g.state = g.nextState()
	return nil
}

// SelectColor records the color. A declared size must be resolved first.
func (g *Gate) SelectColor(value string) error {
	if err := g.requireStarted(); err != nil {
		return err
	}
	if !g.product.HasColors() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product has no colors")
	}
	if g.product.HasSizes() && !g.size.IsSet() {
		return missingAxis(enums.VariantAxisSize)
	}
	choice, err := pick(enums.VariantAxisColor, value, g.product.Colors)
	if err != nil {
		return err
	}
	g.color = choice
	g.state = g.nextState()
	return nil
}

// SetQuantity sets the pending quantity. Only valid once every axis is resolved.
func (g *Gate) SetQuantity(quantity int) error {
	if g.state != enums.GateStateReady {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "quantity can only be set when selection is ready").
			WithDetail("state", g.state)
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	g.quantity = quantity
	return nil
}

// Confirm hands the selection to adder and returns the gate to Idle.
// An unresolved axis fails with a MissingAxisError and adder is not called.
func (g *Gate) Confirm(adder Adder) error {
	if err := g.requireStarted(); err != nil {
		return err
	}
	if g.product.HasSizes() && !g.size.IsSet() {
		return missingAxis(enums.VariantAxisSize)
	}
	if g.product.HasColors() && !g.color.IsSet() {
		return missingAxis(enums.VariantAxisColor)
	}
	if adder == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable")
	}

	g.state = enums.GateStateConfirmed
	adder.AddItem(cart.LineItem{
		ProductID: g.product.ID,
		Name:      g.product.Name,
		UnitPrice: g.product.UnitPrice,
		Variant:   cart.Variant{Size: g.size, Color: g.color},
		VendorID:  g.product.VendorID,
		ImageRef:  g.product.ImageRef,
	}, g.quantity)

	g.reset()
	return nil
}

func (g *Gate) reset() {
	g.size = cart.None()
	g.color = cart.None()
	g.quantity = 0
	g.state = enums.GateStateIdle
}

func (g *Gate) requireStarted() error {
	if g.state == enums.GateStateIdle || g.state == enums.GateStateConfirmed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "selection not started")
	}
	return nil
}

func (g *Gate) nextState() enums.GateState {
	switch {
	case g.product.HasSizes() && !g.size.IsSet():
		return enums.GateStateSelectingSize
	case g.product.HasColors() && !g.color.IsSet():
		return enums.GateStateSelectingColor
	default:
		return enums.GateStateReady
	}
}

func pick(axis enums.VariantAxis, value string, declared []string) (cart.Choice, error) {
	choice := cart.Some(value)
	selected, ok := choice.Value()
	if !ok {
		return cart.None(), missingAxis(axis)
	}
	for _, candidate := range declared {
		if strings.EqualFold(strings.TrimSpace(candidate), selected) {
			return cart.Some(candidate), nil
		}
	}
	return cart.None(), pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown %s", axis)).
		WithDetails(map[string]any{"axis": axis, "value": selected, "allowed": declared})
}

func missingAxis(axis enums.VariantAxis) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, &MissingAxisError{Axis: axis}, "variant selection incomplete").
		WithDetail("missing_axis", axis)
}
