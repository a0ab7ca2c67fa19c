package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/deliverycart/api/responses"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/logger"
)

type sessionCartClearer interface {
	ClearAll(ctx context.Context, sessionID string) error
}

// SessionLogout drops the session cart. Token revocation belongs to the identity service.
func SessionLogout(carts sessionCartClearer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := carts.ClearAll(r.Context(), session); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session cart"))
			return
		}
		if logg != nil {
			logg.Info(r.Context(), "session.logged_out")
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
