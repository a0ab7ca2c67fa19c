package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/internal/cart"
)

// VendorOrderGroup is the slice of a cart that becomes one vendor order.
// It is derived at checkout time and never stored on its own.
type VendorOrderGroup struct {
	VendorID    int64           `json:"vendor_id"`
	Lines       []cart.LineItem `json:"lines"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ItemCount   int             `json:"item_count"`
}

// GroupByVendor partitions lines by vendor. Groups follow the order in which each
// vendor first appears and every line lands in exactly one group.
func GroupByVendor(lines []cart.LineItem) []VendorOrderGroup {
	index := make(map[int64]int)
	groups := []VendorOrderGroup{}
	for _, line := range lines {
		i, ok := index[line.VendorID]
		if !ok {
			i = len(groups)
			index[line.VendorID] = i
			groups = append(groups, VendorOrderGroup{VendorID: line.VendorID, Subtotal: decimal.Zero, DeliveryFee: decimal.Zero})
		}
		g := &groups[i]
		g.Lines = append(g.Lines, line)
		g.Subtotal = g.Subtotal.Add(line.Subtotal())
		g.ItemCount += line.Quantity
	}
	return groups
}

// VendorIDs returns the vendor of each group in order.
func VendorIDs(groups []VendorOrderGroup) []int64 {
	ids := make([]int64, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.VendorID)
	}
	return ids
}
