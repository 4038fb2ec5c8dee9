package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emarket-np/storefront/api/controllers"
	"github.com/emarket-np/storefront/api/middleware"
	cartsvc "github.com/emarket-np/storefront/internal/cart"
	checkoutsvc "github.com/emarket-np/storefront/internal/checkout"
	ordersvc "github.com/emarket-np/storefront/internal/orders"
	paymentsvc "github.com/emarket-np/storefront/internal/payments"
	"github.com/emarket-np/storefront/pkg/config"
	"github.com/emarket-np/storefront/pkg/db"
	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      redis.Pinger
	Cart       *cartsvc.Aggregator
	Checkout   *checkoutsvc.Orchestrator
	Orders     *ordersvc.Service
	Reconciler *paymentsvc.Reconciler
	Registry   *prometheus.Registry
}

// NewRouter assembles the storefront API.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
		middleware.BearerToken(),
	)

	r.Get("/healthz", controllers.Healthz(p.Config, p.Logger, p.DB, p.Redis))
	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.Cart, p.Logger))
			r.Post("/", controllers.CartAdd(p.Cart, p.Logger))
			r.Delete("/{variantCode}", controllers.CartRemove(p.Cart, p.Logger))
			r.Put("/{variantCode}", controllers.CartSetQuantity(p.Cart, p.Logger))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", controllers.CheckoutQuote(p.Checkout, p.Logger))
			r.Post("/", controllers.CheckoutSubmit(p.Checkout, p.Cart, p.Logger))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/apply", controllers.CouponApply(p.Checkout, p.Logger))
			r.Delete("/", controllers.CouponRemove(p.Checkout, p.Logger))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/callback/success", controllers.PaymentSuccessCallback(p.Reconciler, p.Logger))
			r.Get("/callback/failure", controllers.PaymentFailureCallback(p.Reconciler, p.Logger))
			r.Post("/{orderID}/switch-cod", controllers.PaymentSwitchCOD(p.Reconciler, p.Logger))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderHistory(p.Checkout, p.Logger))
			r.Get("/{id}", controllers.OrderFetch(p.Orders, p.Logger))
		})
	})

	return r
}
