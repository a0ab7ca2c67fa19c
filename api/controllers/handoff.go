package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/deliverycart/api/responses"
	"github.com/angelmondragon/deliverycart/api/validators"
	"github.com/angelmondragon/deliverycart/internal/handoff"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/logger"
)

// HandoffService stages and consumes the checkout handoff.
type HandoffService interface {
	Stage(ctx context.Context, sessionID string, vendorID int64) (*handoff.Payload, error)
	Take(ctx context.Context, sessionID string) (*handoff.Payload, error)
}

type stageHandoffRequest struct {
	VendorID int64 `json:"vendor_id" validate:"required,gt=0"`
}

// HandoffStage writes one vendor's lines for the checkout view to pick up.
func HandoffStage(svc HandoffService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stageHandoffRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := svc.Stage(r.Context(), session, body.VendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}

// HandoffTake returns the staged handoff and deletes it. A second read is a 404.
func HandoffTake(svc HandoffService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handoff service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := svc.Take(r.Context(), session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
