package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/plain", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/v1/things/1", "/v1/things/2", "/plain"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("/v1/things/{id}", "GET", "Accepted")); got != 2 {
		t.Errorf("Expected 2 requests for route pattern, got %v", got)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("/plain", "GET", "OK")); got != 1 {
		t.Errorf("Expected 1 request for /plain with implicit 200, got %v", got)
	}
}

func TestStatusWriter_Flush(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	var f http.Flusher = w
	f.Flush()

	if !rr.Flushed {
		t.Error("Expected underlying writer to be flushed")
	}
}

func TestInit_RegistersCollectors(t *testing.T) {
	Init()

	EventsHandled.WithLabelValues("update").Inc()
	CachedPropositions.Set(3)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"optimize_events_handled_total", "optimize_cached_propositions", "sse_clients"} {
		if !names[want] {
			t.Errorf("Expected %s to be registered", want)
		}
	}
}
