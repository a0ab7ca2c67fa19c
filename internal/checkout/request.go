package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/internal/cart"
	"github.com/angelmondragon/deliverycart/internal/delivery"
	"github.com/angelmondragon/deliverycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/ordersapi"
)

// SharedFields are copied into every vendor sub-order.
type SharedFields struct {
	Address            string               `json:"address"`
	Location           *delivery.Coordinate `json:"location,omitempty"`
	UseCurrentLocation bool                 `json:"use_current_location"`
	Notes              string               `json:"notes,omitempty"`
	PaymentMethod      enums.PaymentMethod  `json:"payment_method"`
}

// OrderLine is what the order service needs per product.
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// VendorOrderPayload is one vendor sub-order of a checkout request.
type VendorOrderPayload struct {
	VendorID    int64           `json:"vendor_id"`
	OrderLines  []OrderLine     `json:"order_lines"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Shared      SharedFields    `json:"shared"`
}

// Request is a full checkout ready to submit.
type Request struct {
	Shared SharedFields         `json:"shared"`
	Orders []VendorOrderPayload `json:"orders"`
	Groups []VendorOrderGroup   `json:"groups"`
}

// VendorIDs returns the submitted vendors in submission order.
func (r Request) VendorIDs() []int64 {
	ids := make([]int64, 0, len(r.Orders))
	for _, o := range r.Orders {
		ids = append(ids, o.VendorID)
	}
	return ids
}

// DeliveryFeeTotal sums the per-vendor fees.
func (r Request) DeliveryFeeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, o := range r.Orders {
		total = total.Add(o.DeliveryFee)
	}
	return total
}

// Subtotal sums the group subtotals.
func (r Request) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, g := range r.Groups {
		total = total.Add(g.Subtotal)
	}
	return total
}

// Wire renders the request in the order service format.
func (r Request) Wire(accessToken string) ordersapi.BatchRequest {
	orders := make([]ordersapi.OrderPayload, 0, len(r.Orders))
	for _, o := range r.Orders {
		details := make([]ordersapi.OrderDetail, 0, len(o.OrderLines))
		for _, l := range o.OrderLines {
			details = append(details, ordersapi.OrderDetail{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		location := ""
		if o.Shared.Location.Valid() {
			location = o.Shared.Location.String()
		}
		orders = append(orders, ordersapi.OrderPayload{
			StoreID:            o.VendorID,
			Address:            o.Shared.Address,
			Location:           location,
			UseCurrentLocation: o.Shared.UseCurrentLocation,
			DeliveryNotes:      o.Shared.Notes,
			PaymentMethod:      o.Shared.PaymentMethod.String(),
			DeliveryFee:        o.DeliveryFee.InexactFloat64(),
			OrderDetails:       details,
		})
	}
	return ordersapi.BatchRequest{AccessToken: accessToken, Orders: orders}
}

type feeCalculator interface {
	Fee(user, vendor *delivery.Coordinate) decimal.Decimal
}

// ValidateShared checks the shared fields before anything is built.
func ValidateShared(shared SharedFields) error {
	details := map[string]string{}
	if strings.TrimSpace(shared.Address) == "" && !shared.UseCurrentLocation {
		details["address"] = "is required"
	}
	if shared.UseCurrentLocation && strings.TrimSpace(shared.Address) == "" && !shared.Location.Valid() {
		details["location"] = "is required when using current location"
	}
	if !shared.PaymentMethod.IsValid() {
		details["payment_method"] = "is invalid"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout details").WithDetails(details)
	}
	return nil
}

// BuildRequest turns a cart snapshot into a checkout request. Nothing here touches
// the network: an empty cart or bad shared fields fail with a validation error.
func BuildRequest(
	lines []cart.LineItem,
	shared SharedFields,
	vendorCoords map[int64]delivery.Coordinate,
	user *delivery.Coordinate,
	calc feeCalculator,
) (Request, error) {
	if len(lines) == 0 {
		return Request{}, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if err := ValidateShared(shared); err != nil {
		return Request{}, err
	}
	if calc == nil {
		return Request{}, pkgerrors.New(pkgerrors.CodeInternal, "fee calculator required")
	}
	shared.Address = strings.TrimSpace(shared.Address)
	shared.Notes = strings.TrimSpace(shared.Notes)

	groups := GroupByVendor(lines)
	orders := make([]VendorOrderPayload, 0, len(groups))
	for i := range groups {
		var vendor *delivery.Coordinate
		if coord, ok := vendorCoords[groups[i].VendorID]; ok {
			c := coord
			vendor = &c
		}
		groups[i].DeliveryFee = calc.Fee(user, vendor)

		orderLines := make([]OrderLine, 0, len(groups[i].Lines))
		for _, line := range groups[i].Lines {
			orderLines = append(orderLines, OrderLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		orders = append(orders, VendorOrderPayload{
			VendorID:    groups[i].VendorID,
			OrderLines:  orderLines,
			DeliveryFee: groups[i].DeliveryFee,
			Shared:      shared,
		})
	}
	return Request{Shared: shared, Orders: orders, Groups: groups}, nil
}
