// Package testutil holds helpers shared by HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/TimurManjosov/goptimize/internal/api"
	"github.com/TimurManjosov/goptimize/internal/decisionscope"
	"github.com/TimurManjosov/goptimize/internal/optimize"
	"github.com/TimurManjosov/goptimize/internal/outbox"
)

// EdgeConfig is a configuration with a network destination.
var EdgeConfig = optimize.StaticConfig{optimize.ConfigKeyEdgeConfigID: "test-edge-config"}

// TestServer bundles a started extension with the HTTP server in front of it.
type TestServer struct {
	Server    *api.Server
	Extension *optimize.Extension
	Hub       *outbox.Hub
}

// NewTestServer creates a server over a started extension. The extension logs
// to a null logger and is closed when the test ends.
func NewTestServer(t *testing.T, cfg optimize.ConfigSource, adminKey string) *TestServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	hub := outbox.NewHub(outbox.DefaultBuffer)
	ext := optimize.New(hub, cfg, optimize.WithLogger(logger))
	ext.Start()
	t.Cleanup(func() { _ = ext.Close() })
	return &TestServer{Server: api.NewServer(ext, hub, adminKey), Extension: ext, Hub: hub}
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedPropositions feeds payload to the extension as a personalization response
// for an unknown request, so each proposition is cached under its own scope. It
// returns once the propositions are readable.
func SeedPropositions(ctx context.Context, ext *optimize.Extension, payload ...map[string]any) error {
	items := make([]any, len(payload))
	scopes := make([]decisionscope.DecisionScope, 0, len(payload))
	for i, p := range payload {
		items[i] = p
		if name, ok := p["scope"].(string); ok {
			scopes = append(scopes, decisionscope.New(name))
		}
	}

	ev := optimize.NewEvent("AEP Response Event Handle", optimize.TypeEdge, optimize.SourcePersonalizationDecisions,
		map[string]any{
			optimize.KeyRequestEventID: "seed-" + time.Now().UTC().Format(time.RFC3339Nano),
			optimize.KeyPayload:        items,
		})
	if err := ext.Handle(ev); err != nil {
		return err
	}
	if len(scopes) == 0 {
		return nil
	}
	// a get is queued behind the response, so it returns after it was cached
	_, err := ext.GetPropositions(ctx, scopes)
	return err
}
