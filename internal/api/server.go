// Package api exposes the optimize extension over HTTP.
//
// Public routes let an application request, read and track propositions. The
// admin routes let the transport collaborator feed network responses back in and
// reset the caches. Outbound events are streamed over SSE.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/TimurManjosov/goptimize/internal/optimize"
	"github.com/TimurManjosov/goptimize/internal/outbox"
	"github.com/TimurManjosov/goptimize/internal/telemetry"
)

const (
	// DefaultHeartbeat is the interval between SSE keep-alive comments.
	DefaultHeartbeat = 25 * time.Second

	maxBodyBytes   = 1 << 20
	requestTimeout = 5 * time.Second
)

type Server struct {
	ext         *optimize.Extension
	hub         *outbox.Hub
	adminAPIKey string
	rateLimit   int
	heartbeat   time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit limits every client IP to perMinute requests. Zero disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimit = perMinute }
}

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

func NewServer(ext *optimize.Extension, hub *outbox.Hub, adminKey string, opts ...Option) *Server {
	s := &Server{ext: ext, hub: hub, adminAPIKey: adminKey, heartbeat: DefaultHeartbeat}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	if s.rateLimit > 0 {
		r.Use(httprate.Limit(s.rateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(RateLimitedError),
		))
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// long-lived, so outside the request timeout
	r.Get("/v1/events/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		// public
		r.Post("/v1/propositions/update", s.handleUpdate)
		r.Post("/v1/propositions/get", s.handleGet)
		r.Post("/v1/propositions/track", s.handleTrack)

		// admin (protected)
		r.Post("/v1/events", s.authAdmin(s.handleIngest))
		r.Delete("/v1/propositions", s.authAdmin(s.handleReset))
	})

	return r
}

// ---- middleware & helpers ----

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		// constant-time compare
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminAPIKey)) != 1 {
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// decodeBody reads a JSON request body into v. It writes the error response and
// returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RequestTooLargeError(w, r, "request body exceeds 1MB")
			return false
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
