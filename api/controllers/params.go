package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/deliverycart/api/middleware"
	cartsvc "github.com/angelmondragon/deliverycart/internal/cart"
	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
)

func sessionID(r *http.Request) (string, error) {
	id := middleware.SessionIDFromContext(r.Context())
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing")
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid path parameter").WithDetail("field", name)
	}
	return id, nil
}

// variantQuery reads the optional size and color query parameters that identify a line.
func variantQuery(r *http.Request) (cartsvc.Choice, cartsvc.Choice) {
	q := r.URL.Query()
	return cartsvc.Some(q.Get("size")), cartsvc.Some(q.Get("color"))
}
