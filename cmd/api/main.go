// Package main is the entry point for the travel demand API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planmate/backend/internal/config"
	"github.com/planmate/backend/internal/geo"
	"github.com/planmate/backend/internal/handler"
	"github.com/planmate/backend/internal/middleware"
	"github.com/planmate/backend/internal/planner"
	"github.com/planmate/backend/internal/repo"
	"github.com/planmate/backend/internal/service"
)

// maxBodySize caps request bodies at 1 MiB. Chat messages and draft
// references are small; anything larger is rejected with 413.
const maxBodySize = 1 << 20

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// log/slog is the stdlib structured logger introduced in Go 1.21.
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// The database is optional: without DATABASE_URL the server runs in
	// local-only mode where conversations work fully in memory but draft
	// persistence and plan history are disabled.
	var drafts repo.DraftRepo
	var plans repo.PlanRepo
	if cfg.DatabaseURL != "" {
		// pgxpool manages a pool of Postgres connections.
		// New() does not open connections immediately — the first query does.
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		// Verify the DB is reachable before accepting traffic.
		if err := pool.Ping(context.Background()); err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		slog.Info("database connection established")

		drafts = repo.NewDraftRepo(pool)
		plans = repo.NewPlanRepo(pool)
	} else {
		slog.Info("DATABASE_URL not set, draft persistence and history disabled")
	}

	// --- Plan generator ---------------------------------------------------
	// Also optional: without an API key the conversation engine still
	// collects and validates demands, but confirming reports the
	// generation service as unavailable.
	var generator planner.Generator
	if cfg.OpenAIAPIKey != "" {
		gen, err := planner.NewOpenAIGenerator(cfg.OpenAIAPIKey, planner.WithModel(cfg.OpenAIModel))
		if err != nil {
			slog.Error("failed to configure plan generator", "error", err)
			os.Exit(1)
		}
		generator = gen
		slog.Info("plan generator configured", "model", cfg.OpenAIModel)
	} else {
		slog.Info("OPENAI_API_KEY not set, plan generation disabled")
	}

	// --- Map service --------------------------------------------------------
	// Optional: without an AMap key the plan text still renders, but the
	// location and walking-route endpoints answer 503.
	var geocoder geo.Geocoder
	if cfg.AMapAPIKey != "" {
		gc, err := geo.NewAMapClient(cfg.AMapAPIKey)
		if err != nil {
			slog.Error("failed to configure map client", "error", err)
			os.Exit(1)
		}
		geocoder = gc
		slog.Info("map client configured")
	} else {
		slog.Info("AMAP_API_KEY not set, map endpoints disabled")
	}

	// --- Services ---------------------------------------------------------
	conversations := service.NewConversationService(generator, drafts, plans, cfg.ConversationTTL)

	// --- Auth --------------------------------------------------------------
	var verifier middleware.SessionVerifier
	if cfg.AuthVerifyURL != "" {
		verifier = middleware.NewRemoteVerifier(cfg.AuthVerifyURL)
		slog.Info("session verification enabled")
	} else {
		slog.Info("AUTH_VERIFY_URL not set, all requests are anonymous")
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodySize))
	r.Use(middleware.NewSessionHandler(verifier))

	srvHandler := handler.NewServer(conversations, geocoder)
	r.Mount("/", srvHandler.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// The write timeout leaves headroom for plan generation, which holds
	// the request open while the upstream model responds.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
