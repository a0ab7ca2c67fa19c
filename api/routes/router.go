package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/deliverycart/api/controllers"
	"github.com/angelmondragon/deliverycart/api/middleware"
	"github.com/angelmondragon/deliverycart/internal/cart"
	checkoutsvc "github.com/angelmondragon/deliverycart/internal/checkout"
	"github.com/angelmondragon/deliverycart/pkg/config"
	"github.com/angelmondragon/deliverycart/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	handoffService controllers.HandoffService,
	checkoutService checkoutsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Delete("/items/{productId}", controllers.CartDecrementItem(cartService, logg))
			r.Delete("/lines/{productId}", controllers.CartRemoveLine(cartService, logg))
			r.Delete("/vendors/{vendorId}", controllers.CartClearVendor(cartService, logg))
			r.Post("/handoff", controllers.HandoffStage(handoffService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutSubmit(checkoutService, logg))
			r.Post("/quote", controllers.CheckoutQuote(checkoutService, logg))
			r.Get("/handoff", controllers.HandoffTake(handoffService, logg))
			r.Get("/{attemptId}", controllers.CheckoutConfirmation(checkoutService, logg))
		})

		r.Post("/session/logout", controllers.SessionLogout(cartService, logg))
	})

	return r
}
