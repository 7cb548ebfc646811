package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reraeasy/quotation-engine/api/controllers"
	quotationcontrollers "github.com/reraeasy/quotation-engine/api/controllers/quotations"
	"github.com/reraeasy/quotation-engine/api/middleware"
	"github.com/reraeasy/quotation-engine/internal/catalog"
	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/quotations"
	"github.com/reraeasy/quotation-engine/pkg/config"
	"github.com/reraeasy/quotation-engine/pkg/db"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	"github.com/reraeasy/quotation-engine/pkg/logger"
	pkgredis "github.com/reraeasy/quotation-engine/pkg/redis"
)

// RedisStore is the redis surface the router needs: idempotency records, rate-limit
// counters and the readiness ping.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	Ping(context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisStore,
	metricsHandler http.Handler,
	cat *catalog.Catalog,
	quotationService quotations.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	pricingPolicy := middleware.NewRateLimitPolicy(
		"pricing",
		cfg.Pricing.RateLimitWindow,
		cfg.Pricing.IPRateLimit,
		cfg.Pricing.UserRateLimit,
	)
	pricingLimit := middleware.RateLimit(pricingPolicy, rateLimitStore(redisClient), logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(dbP, redisClient)))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore(redisClient), logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/headers", controllers.CatalogHeaders(cat, logg))
			r.Get("/headers/{header}/services", controllers.CatalogHeaderServices(cat, logg))
			r.Get("/periods", controllers.CatalogPeriods(time.Now))
		})

		r.Route("/pricing", func(r chi.Router) {
			r.Post("/services/edit", controllers.PricingServiceEdit(logg))
			r.Post("/totals", controllers.PricingTotals(normalize.New(cat, logg), logg))
		})

		r.Route("/quotations/{quotationID}", func(r chi.Router) {
			r.With(pricingLimit).Get("/pricing", quotationcontrollers.Pricing(quotationService, logg))
			r.With(pricingLimit).Put("/pricing", quotationcontrollers.SavePricing(quotationService, logg))
			r.Get("/summary", quotationcontrollers.Summary(quotationService, logg))
			r.Get("/terms", quotationcontrollers.Terms(quotationService, logg))
			r.Put("/terms", quotationcontrollers.SaveTerms(quotationService, logg))
			r.Put("/display-mode", quotationcontrollers.DisplayMode(quotationService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager)).
				Post("/approval", quotationcontrollers.Approval(quotationService, logg))
			r.Get("/download", quotationcontrollers.Download(quotationService, logg))
		})
	})

	return r
}

// The helpers below keep a nil RedisStore from reaching the middleware as a non-nil
// interface holding a nil value.

func rateLimitStore(store RedisStore) interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
} {
	if store == nil {
		return nil
	}
	return store
}

func idempotencyStore(store RedisStore) pkgredis.IdempotencyStore {
	if store == nil {
		return nil
	}
	return store
}

func readinessDeps(dbP db.Pinger, store RedisStore) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["database"] = dbP
	}
	if store != nil {
		deps["redis"] = store
	}
	return deps
}
