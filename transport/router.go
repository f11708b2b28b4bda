package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-inbox/core"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	Logger          glog.Logger
	MetricsRecorder core.MetricsRecorder
	MetricsHandler  http.Handler
}

// NewRouter wires the inbound HTTP surface: webhook ingestion, read APIs,
// health probes, and the prometheus scrape endpoint.
func NewRouter(service InboxService, opts RouterOptions) *chi.Mux {
	logger := glog.Ensure(opts.Logger)
	handler := NewHandler(service, logger)

	r := chi.NewRouter()
	r.Use(RequestMetrics(opts.MetricsRecorder))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimw.Recoverer)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Post("/webhook", handler.Webhook)
	r.Get("/messages", handler.ListMessages)
	r.Get("/stats", handler.GetStats)
	r.Get("/health/live", handler.Live)
	r.Get("/health/ready", handler.Ready)

	return r
}
