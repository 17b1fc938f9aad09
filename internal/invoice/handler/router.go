package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kminvoice/km-invoice/pkg/httputil"
	"github.com/kminvoice/km-invoice/pkg/i18n"
	"github.com/kminvoice/km-invoice/pkg/logger"
)

// HealthFunc reports the state of one dependency
type HealthFunc func(ctx context.Context) map[string]string

// RouterConfig holds everything the HTTP API is built from
type RouterConfig struct {
	Invoices       *InvoiceHandler
	Tiers          *TierHandler
	Parser         *ParseHandler
	Health         map[string]HealthFunc
	AllowedOrigins []string
	Logger         *logger.Logger
}

// NewRouter builds the invoice service router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(cfg.Logger))
	r.Use(httputil.Recoverer(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(i18n.Middleware)

	r.Get("/health", healthHandler(cfg.Health))

	cfg.Invoices.Routes(r)
	cfg.Tiers.Routes(r)
	if cfg.Parser != nil {
		cfg.Parser.Routes(r)
	}

	return r
}

func healthHandler(checks map[string]HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "healthy",
			"service": "invoice-service",
		}
		for name, check := range checks {
			state := check(r.Context())
			if state["status"] != "up" && state["status"] != "disabled" {
				body["status"] = "degraded"
			}
			body[name] = state
		}
		httputil.JSON(w, http.StatusOK, body)
	}
}
