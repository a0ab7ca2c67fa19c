package variant

import (
	"strings"

	"github.com/angelmondragon/deliverycart/pkg/enums"
)

// Selection is what a client picked on a product card in one go.
type Selection struct {
	Size     string
	Color    string
	Quantity int
}

// Run drives a fresh gate through sel and confirms into adder.
func Run(product Product, sel Selection, adder Adder) error {
	gate := NewGate(product)
	if err := gate.Start(); err != nil {
		return err
	}
	if strings.TrimSpace(sel.Size) != "" {
		if err := gate.SelectSize(sel.Size); err != nil {
			return err
		}
	}
	if strings.TrimSpace(sel.Color) != "" {
		if err := gate.SelectColor(sel.Color); err != nil {
			return err
		}
	}
	if sel.Quantity != 0 && gate.State() == enums.GateStateReady {
		if err := gate.SetQuantity(sel.Quantity); err != nil {
			return err
		}
	}
	return gate.Confirm(adder)
}
