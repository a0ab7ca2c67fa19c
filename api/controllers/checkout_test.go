package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutsvc "github.com/angelmondragon/deliverycart/internal/checkout"
	"github.com/angelmondragon/deliverycart/internal/checkout/reconcile"
	"github.com/angelmondragon/deliverycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/ordersapi"
)

type stubCheckout struct {
	actor   checkoutsvc.Actor
	input   checkoutsvc.Input
	outcome *checkoutsvc.Outcome
	view    *checkoutsvc.AttemptView
	err     error
}

func (s *stubCheckout) Quote(_ context.Context, actor checkoutsvc.Actor, input checkoutsvc.Input) (*checkoutsvc.Quote, error) {
	s.actor, s.input = actor, input
	if s.err != nil {
		return nil, s.err
	}
	return &checkoutsvc.Quote{Subtotal: decimal.NewFromInt(10), DeliveryFeeTotal: decimal.NewFromInt(2), Total: decimal.NewFromInt(12)}, nil
}

func (s *stubCheckout) Submit(_ context.Context, actor checkoutsvc.Actor, input checkoutsvc.Input) (*checkoutsvc.Outcome, error) {
	s.actor, s.input = actor, input
	return s.outcome, s.err
}

func (s *stubCheckout) Confirmation(_ context.Context, actor checkoutsvc.Actor, _ uuid.UUID) (*checkoutsvc.AttemptView, error) {
	s.actor = actor
	return s.view, s.err
}

func checkoutRouter(svc checkoutsvc.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/checkout/quote", CheckoutQuote(svc, nil))
	r.Post("/checkout", CheckoutSubmit(svc, nil))
	r.Get("/checkout/{attemptId}", CheckoutConfirmation(svc, nil))
	return r
}

const checkoutBody = `{"address":" 1 Main St ","notes":"ring twice","payment_method":"cash"}`

func TestCheckoutSubmitPartialSuccessIs200(t *testing.T) {
	resp := &ordersapi.BatchResponse{
		Status:    "partial_success",
		OrderPins: []string{"P-1"},
		Errors:    []ordersapi.VendorError{{StoreID: 2, Message: "closed"}},
	}
	stub := &stubCheckout{outcome: &checkoutsvc.Outcome{
		AttemptID: uuid.New(),
		Result:    reconcile.Reconcile([]int64{1, 2}, resp, nil),
	}}
	router := checkoutRouter(stub)

	res := serve(t, router, http.MethodPost, "/checkout", checkoutBody, "s1")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", res.Code, res.Body.String())
	}
	var got struct {
		Result struct {
			OverallStatus string `json:"overall_status"`
			PerVendor     []struct {
				VendorID int64  `json:"vendor_id"`
				Outcome  string `json:"outcome"`
			} `json:"per_vendor"`
		} `json:"result"`
	}
	decodeData(t, res, &got)
	if got.Result.OverallStatus != string(enums.CheckoutStatusPartialSuccess) {
		t.Fatalf("unexpected status %q", got.Result.OverallStatus)
	}
	if len(got.Result.PerVendor) != 2 {
		t.Fatalf("expected two vendors, got %d", len(got.Result.PerVendor))
	}

	if stub.actor.SessionID != "s1" || stub.actor.AccessToken != "token-s1" || stub.actor.UserID != "user-s1" {
		t.Fatalf("unexpected actor %+v", stub.actor)
	}
	if stub.input.Shared.Address != "1 Main St" || stub.input.Shared.PaymentMethod != enums.PaymentMethodCash {
		t.Fatalf("unexpected shared fields %+v", stub.input.Shared)
	}
	if stub.input.VendorID != nil {
		t.Fatalf("expected unscoped checkout")
	}
}

func TestCheckoutSubmitFailureIsDependencyError(t *testing.T) {
	result := reconcile.Reconcile([]int64{1}, nil, errors.New("connection refused"))
	outcome := &checkoutsvc.Outcome{AttemptID: uuid.New(), Result: result}
	stub := &stubCheckout{
		outcome: outcome,
		err:     pkgerrors.Wrap(pkgerrors.CodeDependency, result.Err(), "checkout failed").WithDetails(outcome),
	}
	router := checkoutRouter(stub)

	res := serve(t, router, http.MethodPost, "/checkout", checkoutBody, "s1")
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", res.Code)
	}
	body := decodeError(t, res)
	if body.Error.Message != "checkout failed" {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
	if !strings.Contains(string(body.Error.Details), `"overall_status":"failure"`) {
		t.Fatalf("expected reconciled result in details, got %s", body.Error.Details)
	}
}

func TestCheckoutSubmitRejectsUnknownPaymentMethod(t *testing.T) {
	stub := &stubCheckout{}
	router := checkoutRouter(stub)

	res := serve(t, router, http.MethodPost, "/checkout", `{"address":"x","payment_method":"barter"}`, "s1")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
	if stub.actor.SessionID != "" {
		t.Fatalf("service must not be called")
	}
}

func TestCheckoutSubmitRejectsOutOfRangeLocation(t *testing.T) {
	router := checkoutRouter(&stubCheckout{})
	body := `{"use_current_location":true,"location":{"lat":123,"lng":0},"payment_method":"card"}`

	res := serve(t, router, http.MethodPost, "/checkout", body, "s1")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
}

func TestCheckoutSubmitInFlightIsConflict(t *testing.T) {
	stub := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")}
	res := serve(t, checkoutRouter(stub), http.MethodPost, "/checkout", checkoutBody, "s1")
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", res.Code)
	}
}

func TestCheckoutQuoteScopesVendor(t *testing.T) {
	stub := &stubCheckout{}
	body := `{"address":"1 Main St","payment_method":"wallet","vendor_id":4}`

	res := serve(t, checkoutRouter(stub), http.MethodPost, "/checkout/quote", body, "s1")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", res.Code, res.Body.String())
	}
	if stub.input.VendorID == nil || *stub.input.VendorID != 4 {
		t.Fatalf("expected vendor scope 4, got %v", stub.input.VendorID)
	}
	var quote checkoutsvc.Quote
	decodeData(t, res, &quote)
	if !quote.Total.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("unexpected total %s", quote.Total)
	}
}

func TestCheckoutConfirmation(t *testing.T) {
	id := uuid.New()
	stub := &stubCheckout{view: &checkoutsvc.AttemptView{ID: id, Status: enums.CheckoutStatusSuccess}}
	router := checkoutRouter(stub)

	res := serve(t, router, http.MethodGet, "/checkout/"+id.String(), "", "s1")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var view checkoutsvc.AttemptView
	decodeData(t, res, &view)
	if view.ID != id {
		t.Fatalf("unexpected attempt %s", view.ID)
	}

	res = serve(t, router, http.MethodGet, "/checkout/not-a-uuid", "", "s1")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
}
