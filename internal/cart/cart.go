package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Variant holds the selected value for each variant axis.
type Variant struct {
	Size  Choice `json:"size"`
	Color Choice `json:"color"`
}

// LineItem is one product/variant line in a cart.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Variant   Variant         `json:"variant"`
	VendorID  int64           `json:"vendor_id"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
}

// Key returns the identity tuple of the line.
func (l LineItem) Key() LineKey {
	return KeyFor(l.ProductID, l.Variant.Size, l.Variant.Color)
}

// Subtotal is unit price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey identifies a line: two lines with equal keys are the same line.
type LineKey struct {
	ProductID int64
	Size      Choice
	Color     Choice
}

// KeyFor builds a LineKey.
func KeyFor(productID int64, size, color Choice) LineKey {
	return LineKey{ProductID: productID, Size: size, Color: color}
}

// Cart is an ordered collection of line items. Insertion order is kept for display.
// A Cart is not safe for concurrent use; Service serialises access per session.
type Cart struct {
	lines []LineItem
}

// New builds a cart from lines, merging duplicates in order of first appearance.
func New(lines ...LineItem) *Cart {
	c := &Cart{}
	for _, line := range lines {
		if line.Quantity < 1 {
			continue
		}
		c.AddItem(line, line.Quantity)
	}
	return c
}

// AddItem merges delta into the line with the same identity, or appends a new line
// with quantity max(1, delta). An existing line never drops below 1.
func (c *Cart) AddItem(item LineItem, delta int) {
	key := item.Key()
	if idx := c.indexOf(key); idx >= 0 {
		qty := c.lines[idx].Quantity + delta
		if qty < 1 {
			qty = 1
		}
		c.lines[idx].Quantity = qty
		return
	}
	if delta < 1 {
		delta = 1
	}
	item.Quantity = delta
	c.lines = append(c.lines, item)
}

// RemoveItem decrements the matching line by one and deletes it at zero.
func (c *Cart) RemoveItem(productID int64, size, color Choice) {
	idx := c.indexOf(KeyFor(productID, size, color))
	if idx < 0 {
		return
	}
	c.lines[idx].Quantity--
	if c.lines[idx].Quantity <= 0 {
		c.deleteAt(idx)
	}
}

// RemoveLine deletes the matching line regardless of quantity.
func (c *Cart) RemoveLine(productID int64, size, color Choice) {
	idx := c.indexOf(KeyFor(productID, size, color))
	if idx < 0 {
		return
	}
	c.deleteAt(idx)
}

// Deduct lowers the matching line by qty and deletes it once nothing is left.
func (c *Cart) Deduct(key LineKey, qty int) {
	idx := c.indexOf(key)
	if idx < 0 || qty < 1 {
		return
	}
	c.lines[idx].Quantity -= qty
	if c.lines[idx].Quantity <= 0 {
		c.deleteAt(idx)
	}
}

// ClearVendor deletes every line belonging to vendorID.
func (c *Cart) ClearVendor(vendorID int64) {
	kept := c.lines[:0]
	for _, line := range c.lines {
		if line.VendorID != vendorID {
			kept = append(kept, line)
		}
	}
	for i := len(kept); i < len(c.lines); i++ {
		c.lines[i] = LineItem{}
	}
	c.lines = kept
}

// ClearAll empties the cart.
func (c *Cart) ClearAll() {
	c.lines = nil
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []LineItem {
	if c == nil || len(c.lines) == 0 {
		return []LineItem{}
	}
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Find returns the line matching key.
func (c *Cart) Find(key LineKey) (LineItem, bool) {
	idx := c.indexOf(key)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.lines[idx], true
}

// VendorIDs returns the distinct vendors in order of first appearance.
func (c *Cart) VendorIDs() []int64 {
	seen := make(map[int64]struct{})
	ids := []int64{}
	for _, line := range c.lines {
		if _, ok := seen[line.VendorID]; ok {
			continue
		}
		seen[line.VendorID] = struct{}{}
		ids = append(ids, line.VendorID)
	}
	return ids
}

// VendorLines returns a copy of the lines for a single vendor.
func (c *Cart) VendorLines(vendorID int64) []LineItem {
	out := []LineItem{}
	for _, line := range c.lines {
		if line.VendorID == vendorID {
			out = append(out, line)
		}
	}
	return out
}

// Subtotal sums the line subtotals.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Quantity returns the total number of units across lines.
func (c *Cart) Quantity() int {
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

type cartSnapshot struct {
	Lines []LineItem `json:"lines"`
}

// MarshalJSON encodes the cart lines.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartSnapshot{Lines: c.Lines()})
}

// UnmarshalJSON decodes lines and re-applies the merge rules.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var snap cartSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	*c = *New(snap.Lines...)
	return nil
}

func (c *Cart) indexOf(key LineKey) int {
	if c == nil {
		return -1
	}
	for i, line := range c.lines {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

func (c *Cart) deleteAt(idx int) {
	copy(c.lines[idx:], c.lines[idx+1:])
	c.lines[len(c.lines)-1] = LineItem{}
	c.lines = c.lines[:len(c.lines)-1]
}
