package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchparty/internal/platform/config"
	"watchparty/internal/platform/logger"
	"watchparty/internal/platform/metrics"
	"watchparty/internal/relay"
	"watchparty/internal/session"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	relayTimeout := config.GetEnvSeconds("RELAY_TIMEOUT_SECONDS", relay.DefaultTimeout)
	streamOrigin := config.GetEnv("STREAM_ORIGIN", "https://www.cineby.app")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	met := metrics.New()

	registry := session.NewInMemoryRegistry()
	hub := session.NewHub(log)
	sync := session.NewSynchronizer(registry, hub, log, met)
	sessionHandler := session.NewHandler(hub, sync, log)

	fetcher := relay.NewFetcher(relayTimeout, streamOrigin)
	rewriter := relay.NewRewriter(log)
	relayHandler := relay.NewHandler(fetcher, rewriter, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			met.SetActiveSessions(registry.ActiveSessionCount())
			met.SetConnectedParticipants(registry.TotalParticipants())
		}).ServeHTTP(w, req)
	})
	r.Get("/relay", relayHandler.Relay)
	r.Options("/relay", relayHandler.Preflight)
	r.Get("/ws", sessionHandler.Connect)
	r.Post("/sessions/{session_id}/media", sessionHandler.SetMedia)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining connections")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("server starting",
		"port", port,
		"relay_timeout", relayTimeout.String(),
		"log_level", logLevel,
	)

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
