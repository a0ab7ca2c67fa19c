package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/api/responses"
	"github.com/angelmondragon/deliverycart/api/validators"
	cartsvc "github.com/angelmondragon/deliverycart/internal/cart"
	"github.com/angelmondragon/deliverycart/internal/variant"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/logger"
)

// CartFetch returns the session cart.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		c, err := svc.Get(r.Context(), session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

// CartAddItem runs the product card selection and adds the confirmed line.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Product.UnitPrice.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"unit_price": "must be at least 0"}))
			return
		}

		product := payload.Product.toProduct()
		sel := variant.Selection{Size: payload.Size, Color: payload.Color, Quantity: payload.Quantity}
		c, err := svc.Apply(r.Context(), session, func(c *cartsvc.Cart) error {
			return variant.Run(product, sel, c)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

// CartDecrementItem lowers a line's quantity by one, dropping the line at zero.
func CartDecrementItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return lineMutation(svc, logg, cartsvc.Service.RemoveItem)
}

// CartRemoveLine drops a line regardless of quantity.
func CartRemoveLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return lineMutation(svc, logg, cartsvc.Service.RemoveLine)
}

type lineMutator func(svc cartsvc.Service, ctx context.Context, sessionID string, productID int64, size, color cartsvc.Choice) (*cartsvc.Cart, error)

func lineMutation(svc cartsvc.Service, logg *logger.Logger, mutate lineMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		size, color := variantQuery(r)
		c, err := mutate(svc, r.Context(), session, productID, size, color)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

// CartClearVendor removes every line of one vendor.
func CartClearVendor(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := pathID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		c, err := svc.ClearVendor(r.Context(), session, vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

// CartClear empties the session cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ClearAll(r.Context(), session); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(cartsvc.New()))
	}
}

type addItemRequest struct {
	Product  productPayload `json:"product"`
	Size     string         `json:"size"`
	Color    string         `json:"color"`
	Quantity int            `json:"quantity" validate:"min=0"`
}

type productPayload struct {
	ID        int64           `json:"id" validate:"required,gt=0"`
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	VendorID  int64           `json:"vendor_id" validate:"required,gt=0"`
	ImageRef  string          `json:"image_ref"`
	Sizes     []string        `json:"sizes"`
	Colors    []string        `json:"colors"`
	Stock     int             `json:"stock"`
}

func (p productPayload) toProduct() variant.Product {
	return variant.Product{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		VendorID:  p.VendorID,
		ImageRef:  p.ImageRef,
		Sizes:     p.Sizes,
		Colors:    p.Colors,
		Stock:     p.Stock,
	}
}

type cartResponse struct {
	Lines    []cartLineResponse `json:"lines"`
	Vendors  []int64            `json:"vendors"`
	Quantity int                `json:"quantity"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

type cartLineResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	VendorID  int64           `json:"vendor_id"`
	Size      *string         `json:"size"`
	Color     *string         `json:"color"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ImageRef  string          `json:"image_ref,omitempty"`
}

func newCartResponse(c *cartsvc.Cart) cartResponse {
	if c == nil {
		c = cartsvc.New()
	}
	lines := c.Lines()
	resp := cartResponse{
		Lines:    make([]cartLineResponse, 0, len(lines)),
		Vendors:  c.VendorIDs(),
		Quantity: c.Quantity(),
		Subtotal: c.Subtotal(),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			VendorID:  l.VendorID,
			Size:      l.Variant.Size.Ptr(),
			Color:     l.Variant.Color.Ptr(),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
			ImageRef:  l.ImageRef,
		})
	}
	return resp
}
