package transport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-inbox/core"
	glog "github.com/goliatone/go-logger/glog"
)

// RequestLogger logs one line per request with the chi request id attached.
func RequestLogger(logger glog.Logger) func(http.Handler) http.Handler {
	logger = glog.Ensure(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startedAt := time.Now()
			wrapped := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			entry := logger
			if fieldsLogger, ok := entry.(glog.FieldsLogger); ok {
				entry = fieldsLogger.WithFields(map[string]any{
					"request_id":  chimw.GetReqID(r.Context()),
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      wrapped.Status(),
					"duration_ms": time.Since(startedAt).Milliseconds(),
				})
			}
			if wrapped.Status() >= http.StatusInternalServerError {
				entry.Error("http request")
				return
			}
			entry.Info("http request")
		})
	}
}

// RequestMetrics counts requests and observes latency per route pattern.
func RequestMetrics(recorder core.MetricsRecorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = core.NopMetricsRecorder{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startedAt := time.Now()
			wrapped := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			tags := map[string]string{
				"method": r.Method,
				"path":   routePattern(r),
				"status": strconv.Itoa(wrapped.Status()),
			}
			recorder.IncCounter(r.Context(), "inbox.http_requests.total", 1, tags)
			recorder.ObserveHistogram(
				r.Context(),
				"inbox.http_request.duration_ms",
				float64(time.Since(startedAt).Milliseconds()),
				tags,
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if path := strings.TrimSpace(r.URL.Path); path != "" {
		return path
	}
	return "/"
}
