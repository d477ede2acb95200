package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopcore-io/shopcore-backend/api/controllers"
	webhookcontrollers "github.com/shopcore-io/shopcore-backend/api/controllers/webhooks"
	"github.com/shopcore-io/shopcore-backend/api/middleware"
	"github.com/shopcore-io/shopcore-backend/internal/inventory"
	"github.com/shopcore-io/shopcore-backend/internal/orders"
	"github.com/shopcore-io/shopcore-backend/internal/payments"
	"github.com/shopcore-io/shopcore-backend/internal/pricing"
	"github.com/shopcore-io/shopcore-backend/internal/refunds"
	"github.com/shopcore-io/shopcore-backend/pkg/config"
	"github.com/shopcore-io/shopcore-backend/pkg/db"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
	"github.com/shopcore-io/shopcore-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pricingService pricing.Service,
	inventoryLedger inventory.Ledger,
	orderService orders.Service,
	paymentService payments.Service,
	webhookGuard payments.Guard,
	refundService refunds.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products/{productId}", func(r chi.Router) {
			r.Get("/price", controllers.ResolvePrice(pricingService, logg))
			r.Get("/stock", controllers.StockLevels(inventoryLedger, logg))
			r.Route("/price-periods", func(r chi.Router) {
				r.Get("/", controllers.ListPricePeriods(pricingService, logg))
				r.Post("/", controllers.CreatePricePeriod(pricingService, logg))
				r.Put("/{periodId}", controllers.UpdatePricePeriod(pricingService, logg))
				r.Delete("/{periodId}", controllers.DeletePricePeriod(pricingService, logg))
			})
		})

		r.Post("/inventory/adjustments", controllers.AdjustStock(inventoryLedger, logg))

		r.Post("/checkout", controllers.Checkout(orderService, logg))
		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.OrderDetail(orderService, logg))
			r.Post("/transition", controllers.OrderTransition(orderService, logg))
		})

		r.Post("/payments", controllers.RegisterPayment(paymentService, logg))
		r.Route("/payments/{paymentId}", func(r chi.Router) {
			r.Get("/", controllers.PaymentDetail(paymentService, logg))
			r.Post("/refunds", controllers.CreateRefund(refundService, logg))
			r.Get("/refunds", controllers.ListRefunds(refundService, logg))
		})

		r.Post("/webhooks/gateway", webhookcontrollers.GatewayEvent(webhookGuard, logg))
	})

	return r
}
