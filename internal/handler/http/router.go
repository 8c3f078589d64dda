package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/addressbook/internal/service"
	"github.com/utafrali/addressbook/internal/store"
	"github.com/utafrali/addressbook/pkg/health"
	"github.com/utafrali/addressbook/pkg/middleware"
)

// ServiceName labels the metrics and spans of this service.
const ServiceName = "address"

// RouterConfig holds the optional parts of the router.
type RouterConfig struct {
	CORS middleware.CORSConfig
	// PprofCIDRs enables /debug/pprof for the listed networks. Empty disables it.
	PprofCIDRs []string
	// FormattedMaxAge is the private cache lifetime of formatted addresses, in seconds.
	FormattedMaxAge int
}

// NewRouter creates a chi router with all address service routes registered.
func NewRouter(
	addressService *service.AddressService,
	stores *store.Registry,
	tokenValidator middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	addressHandler := NewAddressHandler(addressService, logger)

	r.Route("/api/v1/members/{memberID}/addresses", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))
		r.Use(StoreContext(stores))
		r.Use(middleware.RequestLogger(logger))
		r.Use(MemberAccess)

		r.Get("/", addressHandler.List)
		r.Post("/", addressHandler.Create)
		r.Get("/default-billing", addressHandler.DefaultBilling)
		r.Get("/default-shipping", addressHandler.DefaultShipping)
		r.Get("/draft", addressHandler.Draft)
		r.Get("/{id}", addressHandler.Get)
		r.Put("/{id}", addressHandler.Update)
		r.Delete("/{id}", addressHandler.Delete)
		r.With(middleware.PrivateCache(cfg.FormattedMaxAge)).Get("/{id}/formatted", addressHandler.Formatted)
	})

	return r
}
