package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/goptimize/internal/api"
	"github.com/TimurManjosov/goptimize/internal/config"
	"github.com/TimurManjosov/goptimize/internal/logging"
	"github.com/TimurManjosov/goptimize/internal/optimize"
	"github.com/TimurManjosov/goptimize/internal/outbox"
	"github.com/TimurManjosov/goptimize/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logging.Log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logging.Log.Fatalf("logging: %v", err)
	}
	// package-level component loggers share the configured level and format
	logging.Log.SetLevel(logger.GetLevel())
	logging.Log.SetFormatter(logger.Formatter)
	log := logger.WithField("component", "main")

	telemetry.Init()

	extCfg := optimize.StaticConfig(cfg.ExtensionConfiguration())
	if len(extCfg) == 0 {
		log.Warn("EDGE_CONFIG_ID is not set, update and track requests will be dropped")
	}

	hub := outbox.NewHub(cfg.OutboxBuffer)
	ext := optimize.New(hub, extCfg,
		optimize.WithLogger(logger),
		optimize.WithQueueSize(cfg.QueueSize),
	)
	ext.Start()

	srvAPI := api.NewServer(ext, hub, cfg.AdminAPIKey, api.WithRateLimit(cfg.RateLimitPerIP))
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(log, "api", srv) })
	g.Go(func() error { return serve(log, "metrics", metricsSrv) })
	g.Go(func() error {
		<-gctx.Done()
		ctxShut, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(ctxShut), metricsSrv.Shutdown(ctxShut))
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped with error")
	}
	if err := ext.Close(); err != nil {
		log.WithError(err).Warn("extension close")
	}
	log.Info("stopped")

	if ctx.Err() == nil {
		os.Exit(1)
	}
}

func serve(log *logrus.Entry, name string, srv *http.Server) error {
	log.WithFields(logrus.Fields{"server": name, "addr": srv.Addr}).Info("listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
