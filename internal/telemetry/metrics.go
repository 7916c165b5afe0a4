package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sse_clients",
		Help: "Number of currently connected SSE clients",
	})

	// EventsHandled counts inbound events by the handler that processed them.
	EventsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimize_events_handled_total",
			Help: "Inbound events processed by the extension worker",
		},
		[]string{"handler"},
	)
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimize_events_dropped_total",
		Help: "Inbound events dropped because the worker queue was full",
	})
	OutboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimize_outbound_events_total",
			Help: "Events emitted by the extension",
		},
		[]string{"name"},
	)
	CachedPropositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "optimize_cached_propositions",
		Help: "Number of scopes currently held in the proposition cache",
	})
	PreviewPropositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "optimize_preview_propositions",
		Help: "Number of scopes currently held in the preview cache",
	})
	OutboxDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimize_outbox_dropped_total",
		Help: "Outbound events not delivered to a slow subscriber",
	})
)

func Init() {
	prometheus.MustRegister(
		httpReqs, httpDur, SSEClients,
		EventsHandled, EventsDropped, OutboundEvents,
		CachedPropositions, PreviewPropositions, OutboxDropped,
	)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// route pattern is only known once chi has matched the request
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
