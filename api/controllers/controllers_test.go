package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/deliverycart/api/middleware"
	cartsvc "github.com/angelmondragon/deliverycart/internal/cart"
)

type memCartRepo struct {
	mu    sync.Mutex
	carts map[string]*cartsvc.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[string]*cartsvc.Cart{}}
}

func (m *memCartRepo) Load(_ context.Context, sessionID string) (*cartsvc.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[sessionID]; ok {
		return cartsvc.New(c.Lines()...), nil
	}
	return cartsvc.New(), nil
}

func (m *memCartRepo) Save(_ context.Context, sessionID string, c *cartsvc.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = cartsvc.New(c.Lines()...)
	return nil
}

func (m *memCartRepo) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func newTestCartService(t *testing.T) cartsvc.Service {
	t.Helper()
	svc, err := cartsvc.NewService(newMemCartRepo())
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	return svc
}

func withSession(req *http.Request, sessionID string) *http.Request {
	ctx := middleware.WithSession(req.Context(), sessionID, "token-"+sessionID)
	ctx = middleware.WithUserID(ctx, "user-"+sessionID)
	return req.WithContext(ctx)
}

func serve(t *testing.T, router http.Handler, method, path, body, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if sessionID != "" {
		req = withSession(req, sessionID)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type errorBody struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return body
}

func cartRouter(svc cartsvc.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/cart", CartFetch(svc, nil))
	r.Post("/cart/items", CartAddItem(svc, nil))
	r.Delete("/cart/items/{productId}", CartDecrementItem(svc, nil))
	r.Delete("/cart/lines/{productId}", CartRemoveLine(svc, nil))
	r.Delete("/cart/vendors/{vendorId}", CartClearVendor(svc, nil))
	r.Delete("/cart", CartClear(svc, nil))
	return r
}
