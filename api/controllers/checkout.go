package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/deliverycart/api/middleware"
	"github.com/angelmondragon/deliverycart/api/responses"
	"github.com/angelmondragon/deliverycart/api/validators"
	checkoutsvc "github.com/angelmondragon/deliverycart/internal/checkout"
	"github.com/angelmondragon/deliverycart/internal/delivery"
	"github.com/angelmondragon/deliverycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/logger"
)

const (
	maxAddressLength = 512
	maxNotesLength   = 1000
)

type checkoutRequest struct {
	Address            string               `json:"address" validate:"max=512"`
	Location           *delivery.Coordinate `json:"location"`
	UseCurrentLocation bool                 `json:"use_current_location"`
	Notes              string               `json:"notes"`
	PaymentMethod      string               `json:"payment_method" validate:"required"`
	VendorID           *int64               `json:"vendor_id" validate:"omitempty,gt=0"`
}

func (c checkoutRequest) toInput() (checkoutsvc.Input, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(c.PaymentMethod))
	if err != nil {
		return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetail("payment_method", "is invalid")
	}
	if c.Location != nil && !c.Location.Valid() {
		return checkoutsvc.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid location").
			WithDetail("location", "must be a valid lat/lng pair")
	}
	return checkoutsvc.Input{
		Shared: checkoutsvc.SharedFields{
			Address:            validators.SanitizeString(c.Address, maxAddressLength),
			Location:           c.Location,
			UseCurrentLocation: c.UseCurrentLocation,
			Notes:              validators.SanitizeString(c.Notes, maxNotesLength),
			PaymentMethod:      method,
		},
		VendorID: c.VendorID,
	}, nil
}

func checkoutActor(r *http.Request) (checkoutsvc.Actor, error) {
	session, err := sessionID(r)
	if err != nil {
		return checkoutsvc.Actor{}, err
	}
	return checkoutsvc.Actor{
		SessionID:   session,
		UserID:      middleware.UserIDFromContext(r.Context()),
		AccessToken: middleware.AccessTokenFromContext(r.Context()),
	}, nil
}

func decodeCheckout(r *http.Request) (checkoutsvc.Actor, checkoutsvc.Input, error) {
	actor, err := checkoutActor(r)
	if err != nil {
		return actor, checkoutsvc.Input{}, err
	}
	var body checkoutRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return actor, checkoutsvc.Input{}, err
	}
	input, err := body.toInput()
	return actor, input, err
}

// CheckoutQuote prices the cart without submitting it.
func CheckoutQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		actor, input, err := decodeCheckout(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// CheckoutSubmit fans the cart out to one order per vendor. Partial success is a 200
// whose body lists the failed vendors; a total failure is a dependency error.
func CheckoutSubmit(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		actor, input, err := decodeCheckout(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Submit(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

// CheckoutConfirmation returns a recorded attempt of the calling session.
func CheckoutConfirmation(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		actor, err := checkoutActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attemptID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "attemptId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid attempt id"))
			return
		}

		view, err := svc.Confirmation(r.Context(), actor, attemptID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
