package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/trialbalance/internal/report"
	reporthttp "github.com/odyssey-erp/trialbalance/internal/report/http"
)

// NewRouter assembles the HTTP router for the service.
func NewRouter(logger *slog.Logger, cfg *Config, reportSvc *report.Service) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(logger, cfg) {
		r.Use(mw)
	}
	if cfg != nil && cfg.AppRequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.AppRequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := reporthttp.NewHandler(logger, reportSvc)
	handler.MountRoutes(r)

	return r
}
