package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marco-pos/api/controllers"
	"github.com/angelmondragon/marco-pos/api/middleware"
	"github.com/angelmondragon/marco-pos/internal/catalog"
	"github.com/angelmondragon/marco-pos/internal/checkout"
	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

// Deps is everything the terminal API serves.
type Deps struct {
	Catalog    *catalog.Catalog
	Cart       controllers.CartDeps
	Checkout   *checkout.Service
	Queue      *offlinequeue.Queue
	LocalStore controllers.Pinger
	Sink       controllers.Pinger
	Gatherer   prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.LocalStore, deps.Sink))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, cfg.Terminal.DefaultCashier, logg))

		r.Get("/catalog", controllers.CatalogList(deps.Catalog, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{productId}", controllers.CartChangeQuantity(deps.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Put("/discount", controllers.CartSetDiscount(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/sync", func(r chi.Router) {
			r.Get("/", controllers.SyncStatus(deps.Checkout, logg))
			r.Post("/", controllers.SyncNow(deps.Checkout, logg))

			r.Route("/dead-letters", func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.MemberRoleOwner), logg))
				r.Get("/", controllers.DeadLetterList(deps.Queue, logg))
				r.Post("/{transactionId}/requeue", controllers.DeadLetterRequeue(deps.Queue, logg))
			})
		})
	})

	return r
}
